package binding

import (
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records delegate calls. A nil *Metrics records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the delegate collectors and registers them with reg.
// Collectors already registered by another adapter are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	labels := []string{"op", "delegate"}
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wasm_binding_delegate_calls_total",
				Help: "Total number of native delegate calls",
			},
			labels,
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wasm_binding_delegate_failures_total",
				Help: "Total number of native delegate calls that returned an error",
			},
			labels,
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wasm_binding_delegate_call_seconds",
				Help:    "Native delegate call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			labels,
		),
	}

	var err error
	if m.calls, err = register(reg, m.calls); err != nil {
		return nil, err
	}
	if m.failures, err = register(reg, m.failures); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observe(op, delegate string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(op, delegate).Inc()
	m.duration.WithLabelValues(op, delegate).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(op, delegate).Inc()
	}
}
