// Package app wires the catalog, the ephemeris bundle, the metrics stack, and
// the campaign balancer into a runnable service.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/richardjcool/MMTQueue/config"
	"github.com/richardjcool/MMTQueue/core/campaign"
	"github.com/richardjcool/MMTQueue/core/events"
	coremetrics "github.com/richardjcool/MMTQueue/core/metrics"
	"github.com/richardjcool/MMTQueue/core/model"
	"github.com/richardjcool/MMTQueue/infra/catalog"
	"github.com/richardjcool/MMTQueue/infra/ephemeris"
	"github.com/richardjcool/MMTQueue/infra/logger"
	"github.com/richardjcool/MMTQueue/infra/metrics"
	"github.com/richardjcool/MMTQueue/internal/eventbus"
	"github.com/richardjcool/MMTQueue/pkg/export"
)

// Service owns one campaign scheduling run.
type Service struct {
	balancer *campaign.Balancer
	dates    []time.Time
	output   config.OutputConfig
	bus      eventbus.EventBus
	sink     coremetrics.SchedulerSink
	log      logger.Logger

	promEnabled bool
	promPort    string
}

// New loads every input named in the configuration and assembles the
// balancer. Load failures surface here, before any scheduling starts.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.NewWithOptions("service", cfg.Logging.Level, cfg.Logging.Format)

	oracle, err := ephemeris.LoadBundle(cfg.Ephemeris.BundleFile)
	if err != nil {
		return nil, err
	}
	requests, err := catalog.LoadFields(cfg.Catalog.FieldsDir)
	if err != nil {
		return nil, err
	}
	dates, err := catalog.LoadDates(cfg.Catalog.DatesFile)
	if err != nil {
		return nil, err
	}
	allocations, err := catalog.LoadAllocations(cfg.Catalog.AllocatedTimeFile,
		oracle, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, err
	}

	table, err := model.NewCompletionTable(requests, allocations)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.DoneFile != "" {
		if _, statErr := os.Stat(cfg.Catalog.DoneFile); statErr == nil {
			if err := catalog.ApplyDoneLedger(cfg.Catalog.DoneFile, table); err != nil {
				return nil, err
			}
		} else {
			logg.Warnf("done ledger %s not found, starting from scratch", cfg.Catalog.DoneFile)
		}
	}

	sink, err := metrics.NewSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.New()
	balancer, err := campaign.New(cfg.Campaign, oracle, requests, table, logg, sink, bus)
	if err != nil {
		return nil, err
	}

	logg.Infof("loaded %d requests over %d programs, %d nights",
		len(requests), len(allocations), len(dates))

	return &Service{
		balancer:    balancer,
		dates:       dates,
		output:      cfg.Output,
		bus:         bus,
		sink:        sink,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run executes the campaign and writes the resulting schedule.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	s.watchProgress(ctx)

	s.log.Infof("campaign run %s starting", s.balancer.RunID())
	schedule, err := s.balancer.Run(ctx, s.dates)
	if err != nil {
		return err
	}
	return s.writeSchedule(schedule)
}

// watchProgress mirrors bus events into the service log.
func (s *Service) watchProgress(ctx context.Context) {
	sub := s.bus.Subscribe()
	go func() {
		defer s.bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.NightDone:
					s.log.Debugf("pass %d: night %s scheduled %d entries",
						e.Pass, e.Date.Format("2006/01/02"), e.Entries)
				case events.PassDone:
					s.log.Debugf("pass %d: %d/%d programs served",
						e.Pass, e.ProgramsServed, e.Programs)
				}
			}
		}
	}()
}

func (s *Service) writeSchedule(schedule []model.ScheduleEntry) error {
	write := func(path string, fn func(f *os.File) error) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := fn(f); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	}

	if err := write(s.output.DatFile, func(f *os.File) error {
		if _, err := fmt.Fprintf(f, "# run %s\n", s.balancer.RunID()); err != nil {
			return err
		}
		return export.WriteDat(f, schedule)
	}); err != nil {
		return err
	}
	if s.output.CSVFile != "" {
		if err := write(s.output.CSVFile, func(f *os.File) error {
			return export.WriteCSV(f, schedule)
		}); err != nil {
			return err
		}
	}
	if s.output.JSONFile != "" {
		if err := write(s.output.JSONFile, func(f *os.File) error {
			return export.WriteJSON(f, schedule)
		}); err != nil {
			return err
		}
	}
	s.log.Infof("schedule with %d entries written to %s", len(schedule), s.output.DatFile)
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	return nil
}
