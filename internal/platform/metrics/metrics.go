package metrics

import (
	"net/http"

	"detective_lab/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "detective_lab"

// Metrics owns a private registry so tests and multiple servers never collide on
// the global one.
type Metrics struct {
	registry *prometheus.Registry

	Submissions   *prometheus.CounterVec
	GradeDuration *prometheus.HistogramVec
	PointsAwarded prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Graded submissions by runtime and verdict.",
		}, []string{"runtime", "verdict"}),
		GradeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_run_seconds",
			Help:      "Time spent executing submissions.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"runtime"}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Points granted for first-time solves.",
		}),
	}
	m.registry.MustRegister(
		m.Submissions,
		m.GradeDuration,
		m.PointsAwarded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome records one final grading outcome.
func (m *Metrics) ObserveOutcome(o *model.Outcome) {
	m.Submissions.WithLabelValues(o.Runtime, string(o.Verdict)).Inc()
	if o.Verdict != model.VerdictCaseLocked && o.Verdict != model.VerdictAlreadySolved {
		m.GradeDuration.WithLabelValues(o.Runtime).Observe(float64(o.DurationMs) / 1000)
	}
	if o.Accepted() {
		m.PointsAwarded.Add(float64(o.RewardPoints))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
