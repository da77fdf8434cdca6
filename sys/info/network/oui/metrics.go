package oui

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// 查询结果标签.
const (
	resultCacheHit = "cache_hit"
	resultStatic   = "static"
	resultRawCache = "raw_cache"
	resultRemote   = "remote"
	resultMiss     = "miss"
	resultInvalid  = "invalid"
	resultCanceled = "canceled"
)

type metrics struct {
	lookups *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netgrid_vendor_lookups_total",
		Help: "Vendor resolutions, labeled by the tier that produced the answer.",
	}, []string{"result"})
	if err := reg.Register(lookups); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "register netgrid_vendor_lookups_total")
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, errors.New("netgrid_vendor_lookups_total already registered with incompatible type")
		}
		lookups = existing
	}
	return &metrics{lookups: lookups}, nil
}

func (m *metrics) observe(result string) {
	m.lookups.WithLabelValues(result).Inc()
}
