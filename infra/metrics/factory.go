package metrics

import (
	coremetrics "github.com/richardjcool/MMTQueue/core/metrics"
)

// NewSink builds the configured sink stack. With nothing enabled it returns a
// NopSink so callers never need a nil check.
func NewSink(cfg coremetrics.Config) (coremetrics.SchedulerSink, error) {
	var sinks []coremetrics.SchedulerSink
	if cfg.PrometheusEnabled {
		prom, err := NewPromSink(cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
