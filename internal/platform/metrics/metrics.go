// Package metrics expone los contadores del motor de requests en Prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "social"

var (
	requestsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_opened_total",
			Help:      "Requests opened, by kind.",
		},
		[]string{"kind"},
	)
	requestsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_resolved_total",
			Help:      "Requests resolved, by kind and outcome (accepted, declined, expired, withdrawn).",
		},
		[]string{"kind", "outcome"},
	)
	admissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Admission attempts into capacity-bounded resources, by resource kind and result.",
		},
		[]string{"kind", "result"},
	)
	inconsistencies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_inconsistencies_total",
			Help:      "Requests left accepted while the sender could not be admitted.",
		},
		[]string{"kind"},
	)
	timersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_fired_total",
			Help:      "Expiry timers fired, by timer kind and callback result.",
		},
		[]string{"kind", "result"},
	)
	scheduledTimers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled_timers",
			Help:      "Deadlines inside the current poll window held by the in-process scheduler queue.",
		},
	)
)

var registerMetrics sync.Once

// Register registra todas las métricas en el registry por defecto.
func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(
			requestsOpened,
			requestsResolved,
			admissions,
			inconsistencies,
			timersFired,
			scheduledTimers,
		)
	})
}

// Handler sirve /metrics.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

func RecordRequestOpened(kind string) {
	requestsOpened.WithLabelValues(kind).Inc()
}

func RecordRequestResolved(kind, outcome string) {
	requestsResolved.WithLabelValues(kind, outcome).Inc()
}

func RecordAdmission(kind, result string) {
	admissions.WithLabelValues(kind, result).Inc()
}

func RecordInconsistency(kind string) {
	inconsistencies.WithLabelValues(kind).Inc()
}

func RecordTimerFired(kind, result string) {
	timersFired.WithLabelValues(kind, result).Inc()
}

func SetScheduledTimers(n int) {
	scheduledTimers.Set(float64(n))
}
