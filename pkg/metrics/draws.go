package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DrawMetrics records counters for gacha draw execution.
type DrawMetrics struct {
	duration     *prometheus.HistogramVec
	success      *prometheus.CounterVec
	failure      *prometheus.CounterVec
	medalsEarned prometheus.Counter
}

// NewDrawMetrics registers the draw metrics on the provided registerer.
func NewDrawMetrics(reg prometheus.Registerer) *DrawMetrics {
	if reg == nil {
		return &DrawMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gacha_draw_duration_seconds",
		Help:    "Duration of gacha draw execution in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gacha"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gacha_draw_success_total",
		Help: "Successful gacha draws.",
	}, []string{"gacha"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gacha_draw_failure_total",
		Help: "Failed gacha draws by reason.",
	}, []string{"reason"})
	medalsEarned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medals_earned_total",
		Help: "Medals credited as draw rewards.",
	})
	reg.MustRegister(duration, success, failure, medalsEarned)
	return &DrawMetrics{
		duration:     duration,
		success:      success,
		failure:      failure,
		medalsEarned: medalsEarned,
	}
}

// ObserveDuration records the duration of a draw against its gacha.
func (m *DrawMetrics) ObserveDuration(gacha string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(gacha)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named gacha.
func (m *DrawMetrics) IncSuccess(gacha string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(gacha)).Inc()
}

// IncFailure increments the failure counter for the given reason.
func (m *DrawMetrics) IncFailure(reason string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddMedalsEarned accumulates medals credited by draws.
func (m *DrawMetrics) AddMedalsEarned(amount int64) {
	if m == nil || m.medalsEarned == nil || amount <= 0 {
		return
	}
	m.medalsEarned.Add(float64(amount))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
