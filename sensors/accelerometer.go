package sensors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/stream"
	"github.com/rotblauer/trailhud/types"
)

type AccelerometerService struct {
	source    AccelSource
	bus       *events.Bus
	estimator *orientation.Estimator
	gravity   float64
	config    *params.AccelerometerConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewAccelerometerService(source AccelSource, bus *events.Bus, est *params.EstimatorConfig, config *params.AccelerometerConfig) *AccelerometerService {
	if est == nil {
		est = params.DefaultEstimatorConfig()
	}
	if config == nil {
		config = params.DefaultAccelerometerConfig()
	}
	return &AccelerometerService{
		source:    source,
		bus:       bus,
		estimator: orientation.NewEstimator(est.Step),
		gravity:   est.Gravity,
		config:    config,
		logger:    slog.With("d", "accel"),
		now:       time.Now,
	}
}

func (s *AccelerometerService) Source() AccelSource {
	return s.source
}

// Sample turns one raw reading into an incline.
func (s *AccelerometerService) Sample(raw orientation.Vector) types.Incline {
	v := orientation.GravityCorrect(raw, s.gravity)
	return types.NewIncline(v, s.estimator.Estimate(v), s.now())
}

// Run reads the source once per tick and publishes an incline for every
// sample until ctx is done or the source is exhausted.
func (s *AccelerometerService) Run(ctx context.Context) error {
	defer func() {
		if err := closeSource(s.source); err != nil {
			s.logger.Warn("Failed to close source", "error", err)
		}
	}()

	meter := stream.NewMeter(nil, "sensors/accel", s.config.MeterLogInterval)
	defer meter.Stop()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	s.logger.Info("Accelerometer started", "interval", s.config.Interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		raw, err := s.source.Read()
		if errors.Is(err, ErrNoSample) {
			meter.Drop()
			continue
		}
		if errors.Is(err, io.EOF) {
			s.logger.Info("Accelerometer source exhausted", "samples", meter.Count())
			return nil
		}
		if err != nil {
			s.logger.Error("Accelerometer read failed", "error", err)
			return err
		}
		in := s.Sample(raw)
		meter.Mark(in.Time)
		s.bus.PublishIncline(in)
		s.logger.Log(ctx, slog.LevelDebug-1, "Incline",
			"pitch", in.PitchDegrees, "roll", in.RollDegrees)
	}
}
