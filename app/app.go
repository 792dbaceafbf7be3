// Package app wires trailhud together. Everything is built once here and
// passed to whoever needs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rotblauer/trailhud/cache"
	"github.com/rotblauer/trailhud/daemon/webd"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/metrics/influxdb"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/remote"
	"github.com/rotblauer/trailhud/sensors"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/tracking"
	"golang.org/x/sync/errgroup"
)

type App struct {
	Config *params.Config

	Bus      *events.Bus
	Store    *store.Store
	Latest   *cache.Latest
	Recorder *tracking.Recorder
	Accel    *sensors.AccelerometerService
	Location *sensors.LocationService
	Web      *webd.WebDaemon

	// Optional.
	Syncer   *remote.Syncer
	Exporter *influxdb.Exporter

	logger *slog.Logger
}

// New opens the store and builds every component.
// Sources are opened here, so ctx bounds replay readers.
func New(ctx context.Context, config *params.Config) (*App, error) {
	if config == nil {
		config = params.DefaultConfig()
	}
	if err := os.MkdirAll(config.DataDir, 0770); err != nil {
		return nil, err
	}
	st, err := store.Open(params.StorePath(config.DataDir), false)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   config,
		Bus:      events.NewBus(),
		Store:    st,
		Latest:   cache.NewLatest(config.Cache),
		Recorder: tracking.NewRecorder(st, config.Cache.DedupeSize),
		logger:   slog.With("d", "app"),
	}
	fail := func(err error) (*App, error) {
		a.Bus.Close()
		_ = st.Close()
		return nil, err
	}

	accelSrc, err := sensors.OpenAccelSource(ctx, config.Accelerometer.Source)
	if err != nil {
		return fail(err)
	}
	a.Accel = sensors.NewAccelerometerService(accelSrc, a.Bus, config.Estimator, config.Accelerometer)

	locSrc, err := sensors.OpenLocationSource(ctx, config.Location.Source, config.Location)
	if err != nil {
		return fail(err)
	}
	a.Location = sensors.NewLocationService(locSrc, a.Bus)

	deps := webd.Deps{
		Store:    st,
		Latest:   a.Latest,
		Recorder: a.Recorder,
		Bus:      a.Bus,
	}
	deps.AccelPush, _ = accelSrc.(*sensors.PushAccelSource)
	deps.LocationPush, _ = locSrc.(*sensors.PushLocationSource)
	a.Web, err = webd.NewWebDaemon(config.Web, deps)
	if err != nil {
		return fail(err)
	}

	if config.Sync.URL != "" {
		client, err := remote.NewClient(config.Sync)
		if err != nil {
			return fail(err)
		}
		a.Syncer = remote.NewSyncer(client, config.Sync.Concurrency)
	}
	if config.Influx.URL != "" {
		a.Exporter = influxdb.NewExporter(config.Influx)
	}
	return a, nil
}

// Run runs every component until ctx is done or one of them fails,
// then stops the rest and closes the store.
func (a *App) Run(ctx context.Context) error {
	started := time.Now()
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("Failed to close", "error", err)
		}
		a.logger.Info("Stopped", "elapsed", time.Since(started).Round(time.Second))
	}()

	if a.Config.Route != "" {
		if _, err := a.Recorder.Start(a.Config.Route); err != nil {
			return fmt.Errorf("start route: %w", err)
		}
	}
	if a.Exporter != nil {
		if err := a.Exporter.Health(ctx); err != nil {
			a.logger.Warn("InfluxDB unhealthy, exporting anyway", "error", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Recorder.Run(ctx, a.Bus) })
	g.Go(func() error { return a.Latest.Run(ctx, a.Bus) })
	if a.Syncer != nil {
		g.Go(func() error { return a.Syncer.Run(ctx, a.Bus) })
	}
	if a.Exporter != nil {
		g.Go(func() error { return a.Exporter.Run(ctx, a.Bus) })
	}
	g.Go(func() error { return a.Web.Run(ctx) })

	// Sensors ending (eg. replay exhausted) does not stop the daemon.
	g.Go(func() error { return a.Accel.Run(ctx) })
	g.Go(func() error { return a.Location.Run(ctx) })

	a.logger.Info("Running",
		"accel", a.Config.Accelerometer.Source,
		"location", a.Config.Location.Source,
		"sync", a.Syncer != nil,
		"influx", a.Exporter != nil)
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops an active route and releases the bus and store.
func (a *App) Close() error {
	var errs []error
	if _, ok := a.Recorder.Active(); ok {
		if _, err := a.Recorder.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Exporter != nil {
		if err := a.Exporter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.Bus.Close()
	if err := a.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
