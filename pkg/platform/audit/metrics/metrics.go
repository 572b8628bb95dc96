package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit recorder.
type Metrics struct {
	EventsRecorded     prometheus.Counter
	EventsDroppedActor prometheus.Counter
	EventsDroppedFull  prometheus.Counter
	PersistFailures    prometheus.Counter
	RecordDuration     prometheus.Histogram
	QueueDepth         prometheus.Gauge
}

// New creates a new Metrics instance with all audit recorder metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_audit_events_recorded_total",
			Help: "Total number of audit events successfully persisted or enqueued",
		}),
		EventsDroppedActor: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_audit_events_dropped_missing_actor_total",
			Help: "Total number of audit events silently dropped because the actor does not exist",
		}),
		EventsDroppedFull: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_audit_events_dropped_buffer_full_total",
			Help: "Total number of audit events dropped due to a full async buffer",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		RecordDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "acceso_audit_record_duration_seconds",
			Help:    "Time taken by Record (normalize, existence check, persist or enqueue)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "acceso_audit_queue_depth",
			Help: "Current number of events in the async recorder queue",
		}),
	}
}

func (m *Metrics) IncEventsRecorded()      { m.EventsRecorded.Inc() }
func (m *Metrics) IncDroppedMissingActor() { m.EventsDroppedActor.Inc() }
func (m *Metrics) IncDroppedBufferFull()   { m.EventsDroppedFull.Inc() }
func (m *Metrics) IncPersistFailures()     { m.PersistFailures.Inc() }

// ObserveRecordDuration records the Record call latency in seconds.
func (m *Metrics) ObserveRecordDuration(seconds float64) { m.RecordDuration.Observe(seconds) }

func (m *Metrics) IncQueueDepth() { m.QueueDepth.Inc() }
func (m *Metrics) DecQueueDepth() { m.QueueDepth.Dec() }
