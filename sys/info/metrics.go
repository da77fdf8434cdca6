package info

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	discoveryDuration prometheus.Histogram
	interfaces        prometheus.Gauge
	probeFailures     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		discoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netgrid_discovery_duration_seconds",
			Help:    "Duration of a full interface discovery run.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		interfaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netgrid_discovered_interfaces",
			Help: "Number of interfaces in the latest snapshot.",
		}),
		probeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netgrid_probe_failures_total",
			Help: "Failed probe attempts by probe and failure kind.",
		}, []string{"probe", "kind"}),
	}

	var err error
	if m.discoveryDuration, err = register(reg, m.discoveryDuration); err != nil {
		return nil, err
	}
	if m.interfaces, err = register(reg, m.interfaces); err != nil {
		return nil, err
	}
	if m.probeFailures, err = register(reg, m.probeFailures); err != nil {
		return nil, err
	}
	return m, nil
}

// register 重复注册时复用已存在的采集器.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metric")
	}
	return c, nil
}
