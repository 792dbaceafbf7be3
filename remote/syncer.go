package remote

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/types"
	"golang.org/x/sync/errgroup"
)

// Syncer posts every published location, fire and forget.
// At most Concurrency posts are in flight; locations arriving while every
// slot is busy are dropped.
type Syncer struct {
	client      *Client
	concurrency int
	logger      *slog.Logger

	sent    metrics.Counter
	dropped metrics.Counter
	failed  metrics.Counter
}

func NewSyncer(client *Client, concurrency int) *Syncer {
	if concurrency < 1 {
		concurrency = 1
	}
	metrics.Enabled = true
	return &Syncer{
		client:      client,
		concurrency: concurrency,
		logger:      slog.With("d", "sync"),
		sent:        metrics.GetOrRegisterCounter("sync/sent", nil),
		dropped:     metrics.GetOrRegisterCounter("sync/dropped", nil),
		failed:      metrics.GetOrRegisterCounter("sync/failed", nil),
	}
}

func (s *Syncer) Run(ctx context.Context, bus *events.Bus) error {
	ch := make(chan types.Location, 16)
	sub := bus.SubscribeLocations(ch)
	defer sub.Unsubscribe()

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	defer g.Wait()

	s.logger.Info("Syncing locations", "url", s.client.locationURL())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Err():
			return nil
		case l := <-ch:
			ok := g.TryGo(func() error {
				if _, err := s.client.PostLocation(ctx, l); err != nil {
					s.failed.Inc(1)
					s.logger.Warn("Failed to sync location", "error", err)
					return nil
				}
				s.sent.Inc(1)
				return nil
			})
			if !ok {
				s.dropped.Inc(1)
				s.logger.Warn("Sync busy, dropped location", "date", l.DateString)
			}
		}
	}
}
