// Package grpcauth enforces bearer-token authentication and per-method
// permissions on gRPC servers through auth.Gateway.
package grpcauth

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
)

const authorizationKey = "authorization"

// HealthMethods are reachable without a token.
var HealthMethods = []string{
	"/grpc.health.v1.Health/Check",
	"/grpc.health.v1.Health/Watch",
	"/grpc.health.v1.Health/List",
}

// Interceptor authenticates every call that is not public. Methods with a
// registered permission additionally require it; others only need a valid
// access token.
type Interceptor struct {
	gateway *auth.Gateway
	public  map[string]struct{}
	perms   map[string][]auth.Permission
}

type Option func(*Interceptor)

// WithPublicMethods lets full method names through unauthenticated.
func WithPublicMethods(methods ...string) Option {
	return func(i *Interceptor) {
		for _, m := range methods {
			i.public[m] = struct{}{}
		}
	}
}

// WithMethodPermission requires any of perms for the full method name.
func WithMethodPermission(method string, perms ...auth.Permission) Option {
	return func(i *Interceptor) {
		i.perms[method] = append(i.perms[method], perms...)
	}
}

func New(gateway *auth.Gateway, opts ...Option) *Interceptor {
	i := &Interceptor{
		gateway: gateway,
		public:  make(map[string]struct{}),
		perms:   make(map[string][]auth.Permission),
	}
	WithPublicMethods(HealthMethods...)(i)
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (i *Interceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := i.authorize(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
	}
}

func (i *Interceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	if _, ok := i.public[method]; ok {
		return ctx, nil
	}
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(authorizationKey); len(vals) > 0 {
			header = vals[0]
		}
	}

	var checks []auth.Check
	if perms := i.perms[method]; len(perms) > 0 {
		checks = append(checks, i.gateway.AnyPermission(perms...))
	}
	id, err := i.gateway.Gate(header, checks...)
	if err != nil {
		obs.Logger().Debug().Err(err).Str("method", method).Msg("grpc call rejected")
		return ctx, toStatus(err)
	}
	ctx = auth.ContextWithIdentity(ctx, id)
	if token, err := auth.ExtractBearer(header); err == nil {
		ctx = auth.ContextWithToken(ctx, token)
	}
	return ctx, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	case errors.Is(err, auth.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "token expired")
	case auth.IsAuthentication(err):
		return status.Error(codes.Unauthenticated, "invalid or missing token")
	default:
		return status.Error(codes.Internal, "authorization failed")
	}
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context { return s.ctx }
