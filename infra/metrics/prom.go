package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/richardjcool/MMTQueue/core/metrics"
)

// PromSink records scheduling outcomes in Prometheus metrics.
type PromSink struct {
	slots    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	idle     *prometheus.CounterVec
	usage    *prometheus.GaugeVec
	served   prometheus.Gauge
	spread   prometheus.Gauge
}

// NewPromSink registers scheduler metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.SchedulerSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.SchedulerSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	slots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_scheduled_slots_total",
		Help: "Total number of committed schedule slots",
	}, []string{"program", "pass"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queue_slot_duration_hours",
		Help:    "Charged duration of committed slots in hours",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8},
	}, []string{"program"})
	idle := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_idle_steps_total",
		Help: "Clock advances taken because no candidate was admissible",
	}, []string{"pass"})
	usage := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "queue_program_usage_ratio",
		Help: "Charged over allocated hours per program at end of pass",
	}, []string{"program"})
	served := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queue_programs_served",
		Help: "Programs fully served in the latest pass",
	})
	spread := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queue_usage_stddev",
		Help: "Standard deviation of usage ratios in the latest pass",
	})

	if err := reg.Register(slots); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			slots = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(idle); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			idle = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(usage); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			usage = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(served); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			served = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(spread); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			spread = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		slots:    slots,
		duration: duration,
		idle:     idle,
		usage:    usage,
		served:   served,
		spread:   spread,
	}, nil
}

// RecordScheduledSlot increments the slot counter and observes the charged
// duration.
func (s *PromSink) RecordScheduledSlot(slot coremetrics.ScheduledSlot) error {
	s.slots.WithLabelValues(slot.Program, strconv.Itoa(slot.Pass)).Inc()
	s.duration.WithLabelValues(slot.Program).Observe(slot.Duration.Hours())
	return nil
}

// RecordIdleStep counts a dead-time clock advance.
func (s *PromSink) RecordIdleStep(pass int, _ time.Time) error {
	s.idle.WithLabelValues(strconv.Itoa(pass)).Inc()
	return nil
}

// RecordPassSummary updates the per-pass fairness gauges.
func (s *PromSink) RecordPassSummary(sum coremetrics.PassSummary) error {
	s.served.Set(float64(sum.ProgramsServed))
	s.spread.Set(sum.StddevUsage)
	return nil
}

// RecordProgramUsage sets the usage gauge for one program.
func (s *PromSink) RecordProgramUsage(program string, ratio float64) error {
	s.usage.WithLabelValues(program).Set(ratio)
	return nil
}

// StartPromServer exposes /metrics on the given port and blocks until the
// context is cancelled.
func StartPromServer(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
