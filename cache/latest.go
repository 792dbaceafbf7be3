package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/types"
)

const latestKey = "latest"

// Latest holds the most recent incline and location.
// Each slot expires after its TTL, so a stalled sensor reads as absent
// rather than frozen.
type Latest struct {
	inclines  *ttlcache.Cache[string, types.Incline]
	locations *ttlcache.Cache[string, types.Location]
}

func NewLatest(config *params.CacheConfig) *Latest {
	if config == nil {
		config = params.DefaultCacheConfig()
	}
	return &Latest{
		inclines: ttlcache.New[string, types.Incline](
			ttlcache.WithTTL[string, types.Incline](config.LatestInclineTTL),
			ttlcache.WithDisableTouchOnHit[string, types.Incline]()),
		locations: ttlcache.New[string, types.Location](
			ttlcache.WithTTL[string, types.Location](config.LatestLocationTTL),
			ttlcache.WithDisableTouchOnHit[string, types.Location]()),
	}
}

func (l *Latest) SetIncline(in types.Incline) {
	l.inclines.Set(latestKey, in, ttlcache.DefaultTTL)
}

func (l *Latest) SetLocation(loc types.Location) {
	l.locations.Set(latestKey, loc, ttlcache.DefaultTTL)
}

// Incline returns the latest incline if it has not expired.
func (l *Latest) Incline() (types.Incline, bool) {
	item := l.inclines.Get(latestKey)
	if item == nil || item.IsExpired() {
		return types.Incline{}, false
	}
	return item.Value(), true
}

// Location returns the latest location if it has not expired.
func (l *Latest) Location() (types.Location, bool) {
	item := l.locations.Get(latestKey)
	if item == nil || item.IsExpired() {
		return types.Location{}, false
	}
	return item.Value(), true
}

// LocationExpiresAt is the zero time when there is no location.
func (l *Latest) LocationExpiresAt() time.Time {
	item := l.locations.Get(latestKey)
	if item == nil {
		return time.Time{}
	}
	return item.ExpiresAt()
}

// Run feeds the slots from bus until ctx is done.
func (l *Latest) Run(ctx context.Context, bus *events.Bus) error {
	go l.inclines.Start()
	go l.locations.Start()
	defer l.inclines.Stop()
	defer l.locations.Stop()

	inCh := make(chan types.Incline, 8)
	locCh := make(chan types.Location, 8)
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
			l.SetIncline(in)
		case loc := <-locCh:
			l.SetLocation(loc)
		}
	}
}
