package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	InvitationsCreatedTotal  prometheus.Counter
	InvitationsAcceptedTotal *prometheus.CounterVec
	PermissionChecksTotal    *prometheus.CounterVec
	AuditEventsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetup_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgetup_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "budgetup_db_connections_active",
			Help: "Number of active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "budgetup_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		InvitationsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "budgetup_invitations_created_total",
			Help: "Total number of invitations created",
		}),
		InvitationsAcceptedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetup_invitations_accepted_total",
				Help: "Invitation acceptance attempts by outcome",
			},
			[]string{"outcome"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetup_permission_checks_total",
				Help: "Permission checks by decision",
			},
			[]string{"action", "allowed"},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetup_audit_events_total",
				Help: "Audit events by outcome of the write",
			},
			[]string{"result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.InvitationsCreatedTotal,
		m.InvitationsAcceptedTotal,
		m.PermissionChecksTotal,
		m.AuditEventsTotal,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments HTTP handlers with request count and duration
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := routePattern(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObserveInvitationAccept records an acceptance attempt outcome
// ("accepted", "invalid_code", "already_used", "expired",
// "email_mismatch", "already_member", "error").
func (m *Metrics) ObserveInvitationAccept(outcome string) {
	m.InvitationsAcceptedTotal.WithLabelValues(outcome).Inc()
}

// ObservePermissionCheck records a permission evaluation
func (m *Metrics) ObservePermissionCheck(action string, allowed bool) {
	m.PermissionChecksTotal.WithLabelValues(action, strconv.FormatBool(allowed)).Inc()
}

// ObserveAuditEvent records the outcome of an audit write
// ("written", "dropped", "failed").
func (m *Metrics) ObserveAuditEvent(result string) {
	m.AuditEventsTotal.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
