package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/grpcauth"
)

func healthCmd(g *globals) *cobra.Command {
	var (
		addr    string
		service string
		token   string
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := g.config()
				if err != nil {
					return err
				}
				addr = cfg.GRPC.Addr
			}
			if addr == "" {
				return errors.New("missing address: provide --addr or ENTERPRISE_GRPC_ADDR")
			}
			conn, err := grpcauth.Dial(addr)
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			ctx, cancel := g.context(cmd)
			defer cancel()
			return checkHealth(auth.ContextWithToken(ctx, token), cmd, healthpb.NewHealthClient(conn), service)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default: ENTERPRISE_GRPC_ADDR)")
	cmd.Flags().StringVar(&service, "service", "", "Service name to check (empty for the server as a whole)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token to forward")
	return cmd
}

func checkHealth(ctx context.Context, cmd *cobra.Command, client healthpb.HealthClient, service string) error {
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", service, resp.GetStatus())
	}
	return nil
}
