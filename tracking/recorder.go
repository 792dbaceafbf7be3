// Package tracking persists readings as they arrive and manages the
// active route.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rotblauer/trailhud/cache"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/types"
)

var (
	ErrAlreadyTracking = errors.New("already tracking a route")
	ErrNotTracking     = errors.New("not tracking a route")
	ErrDuplicate       = errors.New("duplicate location")
)

// fix is the part of a location that identifies a duplicate.
// IDs are assigned per reading, so they are left out.
type fix struct {
	Latitude  float64
	Longitude float64
	SpeedMS   float64
	Unix      int64
}

type Recorder struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	route  *types.Route
	dedupe func(fix) bool
}

func NewRecorder(s *store.Store, dedupeSize int) *Recorder {
	return &Recorder{
		store:  s,
		logger: slog.With("d", "tracking"),
		now:    time.Now,
		dedupe: cache.NewDedupeLRUFunc[fix](dedupeSize),
	}
}

// Start begins tracking a named route. Locations recorded until Stop
// are tagged with name.
func (r *Recorder) Start(name string) (types.Route, error) {
	if name == "" {
		return types.Route{}, fmt.Errorf("start route: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.route != nil {
		return *r.route, fmt.Errorf("%w: %q", ErrAlreadyTracking, r.route.Name)
	}
	route := types.NewRoute(name, r.now())
	if err := r.store.PutRoute(route); err != nil {
		return route, err
	}
	r.route = &route
	r.logger.Info("Started route", "route", name)
	return route, nil
}

// Stop ends the active route and returns it.
func (r *Recorder) Stop() (types.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.route == nil {
		return types.Route{}, ErrNotTracking
	}
	route := *r.route
	route.End = r.now()
	if err := r.store.PutRoute(route); err != nil {
		return route, err
	}
	r.route = nil
	r.logger.Info("Stopped route", "route", route.Name,
		"elapsed", route.End.Sub(route.Start).Round(time.Second))
	return route, nil
}

// Active returns the route being tracked, if any.
func (r *Recorder) Active() (types.Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.route == nil {
		return types.Route{}, false
	}
	return *r.route, true
}

// RecordLocation validates, dedupes, tags and stores l.
func (r *Recorder) RecordLocation(l types.Location) error {
	if l.IsEmpty() {
		return fmt.Errorf("invalid location: empty")
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}
	r.mu.Lock()
	pass := r.dedupe(fix{l.Latitude, l.Longitude, l.SpeedMS, l.Date.UnixNano()})
	if r.route != nil && l.Route == "" {
		l.Route = r.route.Name
	}
	r.mu.Unlock()
	if !pass {
		return ErrDuplicate
	}
	return r.store.Append(l)
}

func (r *Recorder) RecordIncline(in types.Incline) error {
	return r.store.Append(in)
}

// Run records every reading published on bus until ctx is done.
// Failures are logged and the reading dropped.
func (r *Recorder) Run(ctx context.Context, bus *events.Bus) error {
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
			if err := r.RecordIncline(in); err != nil {
				r.logger.Error("Failed to store incline", "error", err)
			}
		case l := <-locCh:
			if err := r.RecordLocation(l); err != nil {
				if errors.Is(err, ErrDuplicate) {
					r.logger.Warn("Deduped location", "location", l.String())
					continue
				}
				r.logger.Error("Failed to store location", "error", err)
			}
		}
	}
}
