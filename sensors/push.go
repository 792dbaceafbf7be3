package sensors

import (
	"context"
	"errors"
	"sync"

	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/types"
)

var ErrQueueFull = errors.New("push queue full")

// PushAccelSource holds the latest pushed sample.
// Each sample is read at most once; ticks between pushes are skipped.
type PushAccelSource struct {
	mu     sync.Mutex
	latest orientation.Vector
	fresh  bool
}

func NewPushAccelSource() *PushAccelSource {
	return &PushAccelSource{}
}

// Push replaces any unread sample.
func (s *PushAccelSource) Push(v orientation.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = v
	s.fresh = true
}

func (s *PushAccelSource) Read() (orientation.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return orientation.Vector{}, ErrNoSample
	}
	s.fresh = false
	return s.latest, nil
}

// PushLocationSource queues pushed locations.
type PushLocationSource struct {
	ch chan types.Location
}

func NewPushLocationSource(size int) *PushLocationSource {
	if size < 1 {
		size = 1
	}
	return &PushLocationSource{ch: make(chan types.Location, size)}
}

// Push enqueues l without blocking.
func (s *PushLocationSource) Push(l types.Location) error {
	select {
	case s.ch <- l:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *PushLocationSource) Next(ctx context.Context) (types.Location, error) {
	select {
	case <-ctx.Done():
		return types.Location{}, ctx.Err()
	case l := <-s.ch:
		return l, nil
	}
}
