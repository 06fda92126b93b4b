package kernel

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes recorded by Metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the dispatch collectors. A nil *Metrics records nothing.
type Metrics struct {
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	fallbacks        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kernel",
				Name:      "dispatch_total",
				Help:      "Total number of dispatched requests.",
			},
			[]string{"outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kernel",
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of request dispatches.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"outcome"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kernel",
				Subsystem: "routing",
				Name:      "fallback_total",
				Help:      "Total number of requests routed to the not-found route.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.dispatches, m.dispatchDuration, m.fallbacks} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering dispatch metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeDispatch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
	m.dispatchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) observeFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}
