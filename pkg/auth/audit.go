package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/sethvargo/go-retry"
)

// ErrRecorderClosed is returned by Record after Close.
var ErrRecorderClosed = errors.New("audit recorder closed")

// AuditSink appends authentication events to a named audit table.
type AuditSink interface {
	Append(ctx context.Context, table string, event *domain.AuditEvent) error
}

// AuditRecorderConfig tunes background redelivery of failed appends.
type AuditRecorderConfig struct {
	QueueSize      int
	MaxRetries     uint64
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// DefaultAuditRecorderConfig returns conservative redelivery settings.
func DefaultAuditRecorderConfig() AuditRecorderConfig {
	return AuditRecorderConfig{
		QueueSize:      256,
		MaxRetries:     3,
		BaseDelay:      100 * time.Millisecond,
		AttemptTimeout: 3 * time.Second,
	}
}

type pendingAudit struct {
	table string
	event *domain.AuditEvent
}

// AuditRecorder writes audit events synchronously once and, when that fails,
// hands them to a background worker that retries with exponential backoff.
// A full queue drops the event and reports it through the drop hook.
type AuditRecorder struct {
	sink   AuditSink
	cfg    AuditRecorderConfig
	logger *slog.Logger
	onDrop func(table string)

	mu     sync.RWMutex
	closed bool
	queue  chan pendingAudit
	done   chan struct{}
}

// AuditRecorderOption configures an AuditRecorder.
type AuditRecorderOption func(*AuditRecorder)

// WithDropHook registers fn to be called for every event given up on.
func WithDropHook(fn func(table string)) AuditRecorderOption {
	return func(r *AuditRecorder) { r.onDrop = fn }
}

// WithAuditLogger sets the recorder's logger.
func WithAuditLogger(logger *slog.Logger) AuditRecorderOption {
	return func(r *AuditRecorder) { r.logger = logger }
}

// NewAuditRecorder starts a recorder backed by sink.
func NewAuditRecorder(sink AuditSink, cfg AuditRecorderConfig, opts ...AuditRecorderOption) *AuditRecorder {
	defaults := DefaultAuditRecorderConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaults.AttemptTimeout
	}

	r := &AuditRecorder{
		sink:   sink,
		cfg:    cfg,
		logger: slog.Default(),
		onDrop: func(string) {},
		queue:  make(chan pendingAudit, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.run()
	return r
}

// Record appends event to table. If the first attempt fails the event is
// queued for redelivery and the original error is returned.
func (r *AuditRecorder) Record(ctx context.Context, table string, event *domain.AuditEvent) error {
	err := r.sink.Append(ctx, table, event)
	if err == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(table, event, ErrRecorderClosed)
		return err
	}

	select {
	case r.queue <- pendingAudit{table: table, event: event}:
	default:
		r.drop(table, event, errors.New("retry queue full"))
	}
	return err
}

// Close stops accepting retries and waits for the queue to drain, or for
// ctx to expire.
func (r *AuditRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AuditRecorder) run() {
	defer close(r.done)

	for p := range r.queue {
		if err := r.redeliver(p); err != nil {
			r.drop(p.table, p.event, err)
		}
	}
}

func (r *AuditRecorder) redeliver(p pendingAudit) error {
	backoff := retry.WithMaxRetries(r.cfg.MaxRetries, retry.NewExponential(r.cfg.BaseDelay))

	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		defer cancel()

		if err := r.sink.Append(attemptCtx, p.table, p.event); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (r *AuditRecorder) drop(table string, event *domain.AuditEvent, err error) {
	r.logger.Error("audit event dropped",
		"table", table,
		"user_id", event.UserID,
		"action", event.Action,
		"error", err,
	)
	r.onDrop(table)
}
