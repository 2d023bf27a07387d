package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const UserIDKey ctxKey = "uid"

// Authenticator turns an Authorization header into a caller id.
type Authenticator interface {
	Authenticate(header string) (string, error)
}

func WithCallerID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, UserIDKey, uid)
}

// CallerID returns the id stored by RequireAuth or Auth, or "".
func CallerID(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// RequireAuth rejects requests without a valid bearer token. The caller id
// is available from both gin.Context and the request context afterwards.
func RequireAuth(guard Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := guard.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}
		c.Set(string(UserIDKey), uid)
		c.Request = c.Request.WithContext(WithCallerID(c.Request.Context(), uid))
		c.Next()
	}
}

// Auth is the gRPC counterpart of RequireAuth. Methods listed in open skip it.
func Auth(guard Authenticator, open ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(open))
	for _, m := range open {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if skip[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		header := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
		if header == "" {
			return nil, status.Error(codes.Unauthenticated, "no token")
		}

		uid, err := guard.Authenticate(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		return next(WithCallerID(ctx, uid), req)
	}
}
