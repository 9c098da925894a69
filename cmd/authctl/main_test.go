package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

const testSecret = "authctl-secret-authctl-secret-0001"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, err := execute(t, "s3cret-pass\n", "hash-password")
	require.NoError(t, err)

	material := strings.TrimSpace(out)
	assert.True(t, auth.NewPasswordHasher().Verify("s3cret-pass", material))
}

func TestHashPasswordRequiresInput(t *testing.T) {
	_, err := execute(t, "", "hash-password")
	assert.Error(t, err)
}

func TestInspectToken(t *testing.T) {
	t.Setenv("ENTERPRISE_AUTH_SECRET", testSecret)
	tokens, err := auth.NewTokenService(testSecret, auth.WithIssuer("enterprise-pro"))
	require.NoError(t, err)
	pair, err := tokens.Issue(auth.Identity{UserID: 4, Email: "ops@enterprise.com", Role: auth.RoleManager})
	require.NoError(t, err)

	out, err := execute(t, "", "inspect-token", "--type", "access", pair.AccessToken)
	require.NoError(t, err)
	var report tokenReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "valid", report.State)
	assert.Equal(t, auth.RoleManager, report.Claims.Role)

	out, err = execute(t, "", "inspect-token", "--type", "access", pair.RefreshToken)
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "wrong_type", report.State)
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("ENTERPRISE_DATABASE_URL", "")
	_, err := execute(t, "", "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN")
}

type healthStub struct {
	healthpb.HealthClient
	status healthpb.HealthCheckResponse_ServingStatus
}

func (h healthStub) Check(context.Context, *healthpb.HealthCheckRequest, ...grpc.CallOption) (*healthpb.HealthCheckResponse, error) {
	return &healthpb.HealthCheckResponse{Status: h.status}, nil
}

func TestCheckHealthPrintsStatus(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, checkHealth(context.Background(), cmd, healthStub{status: healthpb.HealthCheckResponse_SERVING}, ""))
	assert.Contains(t, out.String(), "SERVING")

	out.Reset()
	err := checkHealth(context.Background(), cmd, healthStub{status: healthpb.HealthCheckResponse_NOT_SERVING}, "enterprise-pro")
	require.Error(t, err)
	assert.Contains(t, out.String(), "NOT_SERVING")
}
