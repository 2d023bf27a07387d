package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"appointment-booking-api/internal/middleware"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/reservation"
)

type Server struct {
	engine *reservation.Engine
	log    *slog.Logger
}

var _ ReservationServer = (*Server)(nil)

func NewServer(eng *reservation.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: eng, log: log}
}

func (s *Server) ListAvailable(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	rows, err := s.engine.ListAvailable(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	items := make([]any, 0, len(rows))
	for _, a := range rows {
		m, err := viewMap(model.NewView(a, nil))
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		items = append(items, m)
	}
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

func (s *Server) Reserve(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.engine.Reserve(ctx, in.GetValue(), middleware.CallerID(ctx))
	return s.reply(ctx, res, err)
}

func (s *Server) Cancel(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.engine.Cancel(ctx, in.GetValue(), middleware.CallerID(ctx))
	return s.reply(ctx, res, err)
}

func (s *Server) reply(ctx context.Context, res *reservation.Result, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	m, err := viewMap(model.NewView(res.Appointment, res.Owner))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

// viewMap round-trips through JSON so the Struct carries exactly the HTTP
// field names and formats.
func viewMap(v model.View) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode appointment: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode appointment: %w", err)
	}
	return m, nil
}

func (s *Server) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, reservation.ErrNotFound):
		return status.Error(codes.NotFound, "Appointment not found")
	case errors.Is(err, reservation.ErrConflict):
		return status.Error(codes.AlreadyExists, "Appointment is already reserved")
	case errors.Is(err, reservation.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, "Appointment is not reserved")
	case errors.Is(err, reservation.ErrForbidden):
		return status.Error(codes.PermissionDenied, "Not authorized to cancel this appointment")
	case errors.Is(err, reservation.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	}
	s.log.ErrorContext(ctx, "grpc request failed", "err", err)
	return status.Error(codes.Internal, "Internal server error")
}
