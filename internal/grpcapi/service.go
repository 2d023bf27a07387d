// Package grpcapi serves the reservation engine over gRPC. Messages are
// protobuf well-known types, so no generated code is involved; an
// appointment travels as a Struct with the same fields as the HTTP body.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName         = "appointment.v1.ReservationService"
	ListAvailableMethod = "/" + ServiceName + "/ListAvailable"
	ReserveMethod       = "/" + ServiceName + "/Reserve"
	CancelMethod        = "/" + ServiceName + "/Cancel"
)

type ReservationServer interface {
	ListAvailable(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	Reserve(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	Cancel(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAvailable", Handler: listAvailableHandler},
		{MethodName: "Reserve", Handler: transitionHandler(ReserveMethod, ReservationServer.Reserve)},
		{MethodName: "Cancel", Handler: transitionHandler(CancelMethod, ReservationServer.Cancel)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appointment/v1/reservation.proto",
}

func Register(s grpc.ServiceRegistrar, srv ReservationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func listAvailableHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReservationServer).ListAvailable(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListAvailableMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReservationServer).ListAvailable(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

type transitionFunc func(ReservationServer, context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)

func transitionHandler(method string, call transitionFunc) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.StringValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReservationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReservationServer), ctx, req.(*wrapperspb.StringValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client is a thin typed wrapper over a connection to ReservationService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListAvailable(ctx context.Context, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, ListAvailableMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Reserve(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ReserveMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Cancel(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CancelMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
