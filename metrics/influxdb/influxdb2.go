package influxdb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/types"
)

// Exporter writes inclines and locations to an InfluxDB bucket.
// Writes are buffered and flushed by the client in batches.
type Exporter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *slog.Logger

	mu      sync.Mutex
	lastErr error
	wait    sync.WaitGroup
}

func NewExporter(config *params.InfluxConfig) *Exporter {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	if config.BatchSize > 0 {
		opts.SetBatchSize(uint(config.BatchSize))
	}
	if config.FlushInterval > 0 {
		opts.SetFlushInterval(uint(config.FlushInterval.Milliseconds()))
	}
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	e := &Exporter{
		client:   client,
		writeAPI: client.WriteAPI(config.Org, config.Bucket),
		logger:   slog.With("d", "influx"),
	}

	// Errors must be drained or the writer blocks.
	// It has to be called before any writes.
	errorsCh := e.writeAPI.Errors()
	e.wait.Add(1)
	go func() {
		defer e.wait.Done()
		for err := range errorsCh {
			if err == nil {
				continue
			}
			e.logger.Warn("InfluxDB write failed", "error", err)
			e.mu.Lock()
			e.lastErr = err
			e.mu.Unlock()
		}
	}()
	return e
}

// Health checks the server is up.
func (e *Exporter) Health(ctx context.Context) error {
	health, err := e.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influxdb health check failed: %s", msg)
	}
	return nil
}

func InclinePoint(in types.Incline) *write.Point {
	return influxdb2.NewPointWithMeasurement("incline").
		SetTime(in.Time).
		AddField("pitch", in.PitchDegrees).
		AddField("roll", in.RollDegrees).
		AddField("x", in.X).
		AddField("y", in.Y).
		AddField("z", in.Z)
}

func LocationPoint(l types.Location) *write.Point {
	p := influxdb2.NewPointWithMeasurement("location").
		SetTime(l.Date).
		AddField("latitude", l.Latitude).
		AddField("longitude", l.Longitude).
		AddField("speed_ms", l.SpeedMS).
		AddField("speed_mph", l.SpeedMPH())
	if l.Route != "" {
		p.AddTag("route", l.Route)
	}
	return p
}

func (e *Exporter) WriteIncline(in types.Incline) {
	e.writeAPI.WritePoint(InclinePoint(in))
}

func (e *Exporter) WriteLocation(l types.Location) {
	e.writeAPI.WritePoint(LocationPoint(l))
}

// Run exports every reading on bus until ctx is done, then flushes.
func (e *Exporter) Run(ctx context.Context, bus *events.Bus) error {
	inCh := make(chan types.Incline, 64)
	locCh := make(chan types.Location, 16)
	inSub := bus.SubscribeInclines(inCh)
	defer inSub.Unsubscribe()
	locSub := bus.SubscribeLocations(locCh)
	defer locSub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-inSub.Err():
			return nil
		case <-locSub.Err():
			return nil
		case in := <-inCh:
			e.WriteIncline(in)
		case l := <-locCh:
			e.WriteLocation(l)
		}
	}
}

// Close flushes pending points and returns the last write error, if any.
func (e *Exporter) Close() error {
	e.writeAPI.Flush()
	e.client.Close()
	e.wait.Wait()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}
