package sensors

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/types"
)

type LocationService struct {
	source LocationSource
	bus    *events.Bus
	logger *slog.Logger
}

func NewLocationService(source LocationSource, bus *events.Bus) *LocationService {
	return &LocationService{
		source: source,
		bus:    bus,
		logger: slog.With("d", "location"),
	}
}

func (s *LocationService) Source() LocationSource {
	return s.source
}

// Run publishes every fix from the source until ctx is done
// or the source is exhausted.
func (s *LocationService) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing unblocks sources stuck in a read, like serial ports.
	go func() {
		<-ctx.Done()
		if err := closeSource(s.source); err != nil {
			s.logger.Warn("Failed to close source", "error", err)
		}
	}()

	n := 0
	for {
		l, err := s.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				s.logger.Info("Location source exhausted", "fixes", n)
				return nil
			}
			s.logger.Error("Location read failed", "error", err)
			return err
		}
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		if l.DateString == "" && !l.Date.IsZero() {
			l.DateString = types.FormatDate(l.Date)
		}
		n++
		s.bus.PublishLocation(l)
		s.logger.Debug("Location", "location", l.String(), "mph", l.SpeedMPH())
	}
}
