package sensors

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/stream"
	"github.com/rotblauer/trailhud/types"
)

// ReplayAccelSource reads one NDJSON acceleration sample per tick.
// Read never waits on the reader; a tick with no decoded sample ready
// gets ErrNoSample.
type ReplayAccelSource struct {
	r      io.Closer
	cancel context.CancelFunc
	msgs   <-chan json.RawMessage
}

func NewReplayAccelSource(ctx context.Context, r io.ReadCloser) *ReplayAccelSource {
	ctx, cancel := context.WithCancel(ctx)
	return &ReplayAccelSource{
		r:      r,
		cancel: cancel,
		msgs:   stream.NDJSON[json.RawMessage](ctx, r),
	}
}

func (s *ReplayAccelSource) Read() (orientation.Vector, error) {
	for {
		select {
		case msg, ok := <-s.msgs:
			if !ok {
				return orientation.Vector{}, io.EOF
			}
			v, err := types.DecodeAcceleration(msg)
			if err != nil {
				slog.Debug("Skipping replay sample", "error", err)
				continue
			}
			return v, nil
		default:
			return orientation.Vector{}, ErrNoSample
		}
	}
}

func (s *ReplayAccelSource) Close() error {
	s.cancel()
	return s.r.Close()
}

// ReplayLocationSource reads NDJSON locations as fast as they are consumed.
// Each line may be a flat location, a GeoJSON point feature,
// or a FeatureCollection.
type ReplayLocationSource struct {
	r       io.Closer
	cancel  context.CancelFunc
	msgs    <-chan json.RawMessage
	pending []types.Location
}

func NewReplayLocationSource(ctx context.Context, r io.ReadCloser) *ReplayLocationSource {
	ctx, cancel := context.WithCancel(ctx)
	return &ReplayLocationSource{
		r:      r,
		cancel: cancel,
		msgs:   stream.NDJSON[json.RawMessage](ctx, r),
	}
}

func (s *ReplayLocationSource) Next(ctx context.Context) (types.Location, error) {
	for len(s.pending) == 0 {
		var msg json.RawMessage
		var ok bool
		select {
		case <-ctx.Done():
			return types.Location{}, ctx.Err()
		case msg, ok = <-s.msgs:
		}
		if !ok {
			return types.Location{}, io.EOF
		}
		err := types.DecodeLocations(msg, func(l types.Location) error {
			s.pending = append(s.pending, l)
			return nil
		})
		if err != nil {
			slog.Debug("Skipping replay location", "error", err)
		}
	}
	l := s.pending[0]
	s.pending = s.pending[1:]
	return l, nil
}

func (s *ReplayLocationSource) Close() error {
	s.cancel()
	return s.r.Close()
}
