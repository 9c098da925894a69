package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/ids"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
)

const (
	defaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

var (
	// ErrBufferFull means the record was dropped; the caller's own decision stands.
	ErrBufferFull = errors.New("audit: buffer full, record dropped")
	ErrClosed     = errors.New("audit: trail closed")
	ErrNoAction   = errors.New("audit: action is required")
)

// Trail accepts records without blocking and writes them to a Store from a
// single goroutine started with Run.
type Trail struct {
	store        Store
	ch           chan Record
	now          func() time.Time
	onError      func(Record, error)
	historyLimit int
	log          zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	running atomic.Bool
	done    chan struct{}
}

type Option func(*Trail)

// WithBuffer sets the number of records held before Record starts dropping.
func WithBuffer(n int) Option {
	return func(t *Trail) {
		if n > 0 {
			t.ch = make(chan Record, n)
		}
	}
}

func WithClock(fn func() time.Time) Option {
	return func(t *Trail) {
		if fn != nil {
			t.now = fn
		}
	}
}

// WithErrorHandler is called from the writer goroutine for every failed append.
func WithErrorHandler(fn func(Record, error)) Option {
	return func(t *Trail) { t.onError = fn }
}

// WithHistoryLimit sets the default page size of HistoryFor.
func WithHistoryLimit(n int) Option {
	return func(t *Trail) { t.historyLimit = n }
}

func NewTrail(store Store, opts ...Option) *Trail {
	t := &Trail{
		store:        store,
		ch:           make(chan Record, defaultBuffer),
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
		log:          obs.Component("audit"),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record stamps rec and queues it. It never blocks: a full buffer yields
// ErrBufferFull and a closed trail ErrClosed.
func (t *Trail) Record(ctx context.Context, rec Record) error {
	rec.Action = strings.TrimSpace(rec.Action)
	if rec.Action == "" {
		return ErrNoAction
	}
	now := t.now().UTC()
	if rec.ID == "" {
		rec.ID = ids.NewAt(now)
	}
	rec.CreatedAt = now
	if rec.RequestID == "" {
		rec.RequestID = RequestIDFromContext(ctx)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}
	select {
	case t.ch <- rec:
		obs.AuditQueueDepth(len(t.ch))
		return nil
	default:
		obs.AuditRecorded("dropped")
		t.log.Warn().Str("action", rec.Action).Str("request_id", rec.RequestID).Msg("audit buffer full, dropping record")
		return ErrBufferFull
	}
}

// Run writes queued records until ctx is cancelled or Close is called, then
// flushes whatever is still buffered. Cancelling ctx closes the trail to new
// records.
func (t *Trail) Run(ctx context.Context) {
	if !t.running.CompareAndSwap(false, true) {
		return
	}
	defer close(t.done)
	for {
		select {
		case rec, ok := <-t.ch:
			if !ok {
				return
			}
			t.write(rec)
		case <-ctx.Done():
			t.stopIntake()
			t.drain()
			return
		}
	}
}

// Close stops intake and waits for buffered records to be written.
func (t *Trail) Close(ctx context.Context) error {
	t.stopIntake()
	if !t.running.Load() {
		t.drain()
		return nil
	}
	select {
	case <-t.done:
		t.drain()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trail) stopIntake() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
}

// HistoryFor returns actorID's records, most recent first.
func (t *Trail) HistoryFor(ctx context.Context, actorID int64, limit int) ([]Record, error) {
	return t.History(ctx, Query{ActorID: &actorID, Limit: limit})
}

// History runs q with the limit clamped.
func (t *Trail) History(ctx context.Context, q Query) ([]Record, error) {
	q.Limit = ClampLimit(q.Limit, t.historyLimit)
	return t.store.History(ctx, q)
}

func (t *Trail) drain() {
	for {
		select {
		case rec, ok := <-t.ch:
			if !ok {
				return
			}
			t.write(rec)
		default:
			return
		}
	}
}

func (t *Trail) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	obs.AuditQueueDepth(len(t.ch))

	if err := t.store.Append(ctx, rec); err != nil {
		obs.AuditRecorded("failed")
		t.log.Error().Err(err).Str("action", rec.Action).Str("record_id", rec.ID).Msg("audit write failed")
		if t.onError != nil {
			t.onError(rec, err)
		}
		return
	}
	obs.AuditRecorded("written")
	ev := t.log.Info().Str("record_id", rec.ID).Str("action", rec.Action)
	if rec.ActorID != nil {
		ev = ev.Int64("actor_id", *rec.ActorID)
	}
	if rec.RequestID != "" {
		ev = ev.Str("request_id", rec.RequestID)
	}
	ev.Msg("audit")
}
