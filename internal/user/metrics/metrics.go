package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the user module.
// Tracks account lifecycle counts and the authentication critical path.
type Metrics struct {
	UsersCreated         prometheus.Counter
	UsersDeleted         prometheus.Counter
	LoginSuccesses       prometheus.Counter
	LoginFailures        prometheus.Counter
	AuthenticateDuration prometheus.Histogram
}

// New creates a new Metrics instance with all user module metrics registered.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_users_created_total",
			Help: "Total number of user accounts created",
		}),
		UsersDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_users_deleted_total",
			Help: "Total number of user accounts deleted",
		}),
		LoginSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_logins_success_total",
			Help: "Total number of successful authentications",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acceso_logins_failure_total",
			Help: "Total number of rejected authentications",
		}),
		AuthenticateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "acceso_authenticate_duration_seconds",
			Help:    "Duration of Authenticate operations (dominated by bcrypt)",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementUserCreated records a successful account creation.
func (m *Metrics) IncrementUserCreated() {
	m.UsersCreated.Inc()
}

// IncrementUserDeleted records an account deletion.
func (m *Metrics) IncrementUserDeleted() {
	m.UsersDeleted.Inc()
}

// IncrementLoginSuccess records a successful authentication.
func (m *Metrics) IncrementLoginSuccess() {
	m.LoginSuccesses.Inc()
}

// IncrementLoginFailure records a rejected authentication.
func (m *Metrics) IncrementLoginFailure() {
	m.LoginFailures.Inc()
}

// ObserveAuthenticate records the duration of an Authenticate operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAuthenticate(start time.Time) {
	m.AuthenticateDuration.Observe(time.Since(start).Seconds())
}
