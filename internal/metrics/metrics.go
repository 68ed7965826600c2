// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkeye/Proctor/internal/domain"
)

const namespace = "proctor"

// Event outcomes.
const (
	OutcomeHandled      = "handled"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalid      = "invalid"
	OutcomeUnknown      = "unknown"
	OutcomeLimited      = "rate_limited"
)

// EventUnknown labels every event name outside a channel's table.
const EventUnknown = "unknown"

// Recorder owns a private Prometheus registry. All methods are safe on a
// nil receiver so callers can run without metrics.
type Recorder struct {
	registry       *prometheus.Registry
	events         *prometheus.CounterVec
	connections    *prometheus.GaugeVec
	activeExams    prometheus.Gauge
	groups         prometheus.Gauge
	dropped        prometheus.Counter
	gateRejections *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound realtime events by name and outcome.",
		}, []string{"event", "outcome"}),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_connections",
			Help:      "Registered connections by role.",
		}, []string{"role"}),
		activeExams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_exams",
			Help:      "Distinct exams with at least one registered connection.",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_groups",
			Help:      "Non-empty multicast groups (exam rooms, pairings, monitors).",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Outbound frames dropped because a send buffer was full.",
		}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Connections refused by the identity gate by reason.",
		}, []string{"reason"}),
	}
	r.registry.MustRegister(
		r.events,
		r.connections,
		r.activeExams,
		r.groups,
		r.dropped,
		r.gateRejections,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Event(name, outcome string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(name, outcome).Inc()
}

func (r *Recorder) Stats(s domain.Stats) {
	if r == nil {
		return
	}
	r.connections.WithLabelValues(string(domain.RoleStudent)).Set(float64(s.Students))
	r.connections.WithLabelValues(string(domain.RoleAdmin)).Set(float64(s.Admins))
	r.activeExams.Set(float64(s.ActiveExams))
}

func (r *Recorder) Groups(n int) {
	if r == nil {
		return
	}
	r.groups.Set(float64(n))
}

func (r *Recorder) Dropped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.dropped.Add(float64(n))
}

func (r *Recorder) GateRejected(reason string) {
	if r == nil {
		return
	}
	r.gateRejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
