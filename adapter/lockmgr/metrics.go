package lockmgr

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	wait     prometheus.Histogram
	timeouts prometheus.Counter
	held     prometheus.Gauge
}

// newMetrics builds the lock metrics. A nil registerer leaves them
// unregistered. Managers sharing a registerer share the collectors
// registered first.
func newMetrics(reg prometheus.Registerer, namespace string) (*metrics, error) {
	wait, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for a lock to be granted",
		Buckets:   prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}
	timeouts, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lock_timeouts_total",
		Help:      "Total number of lock requests that timed out",
	}))
	if err != nil {
		return nil, err
	}
	held, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "locks_held",
		Help:      "Number of locks currently held",
	}))
	if err != nil {
		return nil, err
	}
	return &metrics{wait: wait, timeouts: timeouts, held: held}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if reg == nil {
		return c, nil
	}
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}
