package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/richardjcool/MMTQueue/core/metrics"
	"github.com/richardjcool/MMTQueue/infra/logger"
)

// InfluxSink writes scheduling outcomes to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.SchedulerSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordScheduledSlot writes one committed slot as a point.
func (s *InfluxSink) RecordScheduledSlot(slot coremetrics.ScheduledSlot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scheduled_slot").
		AddTag("request_id", slot.RequestID).
		AddTag("program", slot.Program).
		AddTag("pass", strconv.Itoa(slot.Pass)).
		AddTag("component", "night_scheduler").
		AddField("duration_hours", round3(slot.Duration.Hours())).
		AddField("visits", slot.Visits).
		AddField("weight", slot.Weight).
		SetTime(slot.Start)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordIdleStep writes one dead-time clock advance.
func (s *InfluxSink) RecordIdleStep(pass int, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("idle_step").
		AddTag("pass", strconv.Itoa(pass)).
		AddTag("component", "night_scheduler").
		AddField("count", 1).
		SetTime(at)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPassSummary writes the fairness outcome of one balancer pass.
func (s *InfluxSink) RecordPassSummary(sum coremetrics.PassSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pass_summary").
		AddTag("run_id", sum.RunID).
		AddTag("pass", strconv.Itoa(sum.Pass)).
		AddTag("component", "balancer").
		AddField("entries", sum.Entries).
		AddField("idle_steps", sum.IdleSteps).
		AddField("programs", sum.Programs).
		AddField("programs_served", sum.ProgramsServed).
		AddField("mean_usage", round3(sum.MeanUsage)).
		AddField("stddev_usage", round3(sum.StddevUsage)).
		SetTime(sum.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordProgramUsage writes one program's end-of-pass usage ratio.
func (s *InfluxSink) RecordProgramUsage(program string, ratio float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("program_usage").
		AddTag("program", program).
		AddTag("component", "balancer").
		AddField("usage_ratio", round3(ratio)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
