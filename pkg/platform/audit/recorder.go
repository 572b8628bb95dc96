package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "acceso/pkg/domain"
	auditmetrics "acceso/pkg/platform/audit/metrics"
	"acceso/pkg/requestcontext"
)

// ActorDirectory answers whether an account exists. Satisfied by the user
// store. The Recorder checks it before writing so events never reference an
// actor that was never created.
type ActorDirectory interface {
	ExistsByID(ctx context.Context, userID id.UserID) (bool, error)
}

// Recorder captures audit events as a side effect of business operations.
//
// Record is deliberately void: the business operation that triggered the audit
// call must always be able to proceed, so every failure inside the recorder is
// absorbed and logged. The persistence step runs in its own unit of work,
// detached from any transaction or cancellation the caller holds.
type Recorder struct {
	store      Store
	actors     ActorDirectory
	normalizer *Normalizer
	logger     *slog.Logger
	metrics    *auditmetrics.Metrics

	events chan Event
	wg     sync.WaitGroup
	async  bool
}

// RecorderOption configures the Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets a logger for absorbed-failure reporting.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *auditmetrics.Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithNormalizer overrides the default payload normalizer. Used by tests to
// inject serializer failures.
func WithNormalizer(n *Normalizer) RecorderOption {
	return func(r *Recorder) {
		if n != nil {
			r.normalizer = n
		}
	}
}

// WithAsyncBuffer enables async persistence with the specified buffer size.
// Events are queued and written by a background goroutine; a full buffer
// drops the event rather than blocking the caller.
func WithAsyncBuffer(size int) RecorderOption {
	return func(r *Recorder) {
		if size > 0 {
			r.events = make(chan Event, size)
			r.async = true
		}
	}
}

// NewRecorder creates a Recorder writing to store, gated by the actor
// directory. By default persistence is synchronous (still in its own unit of
// work); see WithAsyncBuffer.
func NewRecorder(store Store, actors ActorDirectory, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:      store,
		actors:     actors,
		normalizer: NewNormalizer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.async {
		r.wg.Add(1)
		go r.processEvents()
	}
	return r
}

// Record persists an audit event for userID. details may be nil, a string
// (JSON or free text), or any serializable value; it is normalized to a valid
// JSON document before persistence.
//
// Record never returns an error and never panics out. If the actor does not
// exist the event is silently dropped; that is an expected outcome, not a
// failure of the caller's operation.
func (r *Recorder) Record(ctx context.Context, userID id.UserID, action Action, details any) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logError(ctx, "audit record panicked", "panic", rec, "action", string(action))
		}
		if r.metrics != nil {
			r.metrics.ObserveRecordDuration(time.Since(start).Seconds())
		}
	}()

	// The audit write must complete even when the caller's request is
	// cancelled right after its mutation committed.
	ctx = context.WithoutCancel(ctx)

	detailsJSON := r.normalizer.Normalize(details)

	exists, err := r.actors.ExistsByID(ctx, userID)
	if err != nil {
		r.incPersistFailures()
		r.logError(ctx, "audit actor lookup failed", "error", err, "user_id", userID.String(), "action", string(action))
		return
	}
	if !exists {
		if r.metrics != nil {
			r.metrics.IncDroppedMissingActor()
		}
		r.logWarn(ctx, "audit event dropped: actor does not exist", "user_id", userID.String(), "action", string(action))
		return
	}

	event := Event{
		ID:        id.AuditEventID(uuid.New()),
		UserID:    userID,
		Action:    string(action),
		Timestamp: requestcontext.Now(ctx),
		Details:   detailsJSON,
	}

	if r.async {
		select {
		case r.events <- event:
			r.incRecorded()
			if r.metrics != nil {
				r.metrics.IncQueueDepth()
			}
		default:
			if r.metrics != nil {
				r.metrics.IncDroppedBufferFull()
			}
			r.logWarn(ctx, "audit buffer full, event dropped", "action", event.Action, "user_id", event.UserID.String())
		}
		return
	}

	r.persist(ctx, event)
}

// PurgeBefore deletes every event with timestamp strictly before the cutoff
// and returns the number removed. Unlike Record this is an explicit admin
// operation, so failures propagate to the caller.
func (r *Recorder) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := r.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	r.logInfo(ctx, "audit events purged", "removed", removed, "cutoff", cutoff)
	return removed, nil
}

// processEvents runs in a goroutine and persists events from the channel.
func (r *Recorder) processEvents() {
	defer r.wg.Done()
	for event := range r.events {
		if r.metrics != nil {
			r.metrics.DecQueueDepth()
		}
		r.persist(context.Background(), event)
	}
}

// Close shuts down the async recorder and waits for pending events to drain.
func (r *Recorder) Close() {
	if r.async && r.events != nil {
		close(r.events)
		r.wg.Wait()
	}
}

func (r *Recorder) persist(ctx context.Context, event Event) {
	if err := r.store.Append(ctx, event); err != nil {
		r.incPersistFailures()
		r.logError(ctx, "failed to persist audit event",
			"error", err,
			"action", event.Action,
			"user_id", event.UserID.String(),
		)
		return
	}
	if !r.async {
		r.incRecorded()
	}
}

func (r *Recorder) incRecorded() {
	if r.metrics != nil {
		r.metrics.IncEventsRecorded()
	}
}

func (r *Recorder) incPersistFailures() {
	if r.metrics != nil {
		r.metrics.IncPersistFailures()
	}
}

func (r *Recorder) logError(ctx context.Context, msg string, args ...any) {
	if r.logger != nil {
		r.logger.ErrorContext(ctx, msg, args...)
	}
}

func (r *Recorder) logWarn(ctx context.Context, msg string, args ...any) {
	if r.logger != nil {
		r.logger.WarnContext(ctx, msg, args...)
	}
}

func (r *Recorder) logInfo(ctx context.Context, msg string, args ...any) {
	if r.logger != nil {
		r.logger.InfoContext(ctx, msg, args...)
	}
}
