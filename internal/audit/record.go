// Package audit records security-relevant actions through a bounded
// asynchronous sink so a slow store cannot hold up request handling.
package audit

import (
	"context"
	"strings"
	"time"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Record is one immutable audit fact. ActorID is nil for unauthenticated events.
type Record struct {
	ID          string         `json:"id"`
	ActorID     *int64         `json:"actor_id"`
	Action      string         `json:"action"`
	TargetTable string         `json:"target_table,omitempty"`
	TargetID    *int64         `json:"target_id,omitempty"`
	Before      map[string]any `json:"old_values,omitempty"`
	After       map[string]any `json:"new_values,omitempty"`
	OriginIP    string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Query selects records most-recent-first.
type Query struct {
	ActorID *int64
	Action  string
	// Before keeps only records whose id sorts below it, for paging.
	Before string
	Limit  int
}

// Store persists records. Append must be atomic per record.
type Store interface {
	Append(ctx context.Context, rec Record) error
	History(ctx context.Context, q Query) ([]Record, error)
}

// ID returns a pointer suitable for ActorID/TargetID.
func ID(v int64) *int64 { return &v }

// ClampLimit applies the default and upper bound to a history limit.
func ClampLimit(limit, def int) int {
	if def <= 0 || def > MaxHistoryLimit {
		def = DefaultHistoryLimit
	}
	if limit <= 0 {
		return def
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
