package grpcauth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

// Dial creates a client connection that forwards the caller's bearer token.
// Without options the transport is insecure.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	opts = append(opts,
		grpc.WithChainUnaryInterceptor(ForwardTokenUnary()),
		grpc.WithChainStreamInterceptor(ForwardTokenStream()),
	)
	return grpc.NewClient(target, opts...)
}

// ForwardTokenUnary copies the token stored by auth.ContextWithToken into
// outgoing metadata.
func ForwardTokenUnary() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(outgoingWithToken(ctx), method, req, reply, cc, opts...)
	}
}

func ForwardTokenStream() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(outgoingWithToken(ctx), desc, cc, method, opts...)
	}
}

func outgoingWithToken(ctx context.Context) context.Context {
	token, ok := auth.TokenFromContext(ctx)
	if !ok || token == "" {
		return ctx
	}
	if md, ok := metadata.FromOutgoingContext(ctx); ok && len(md.Get(authorizationKey)) > 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+token)
}
