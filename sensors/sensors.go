// Package sensors turns raw accelerometer and location sources into
// inclines and locations on the bus.
//
// Each service owns exactly one source. Sources never publish;
// services poll or pull them and publish what they get.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/types"
)

// ErrNoSample means the source had nothing new; the tick is skipped.
var ErrNoSample = errors.New("no sample")

// AccelSource yields raw acceleration samples, in g.
// Read is called once per tick and should not block for long.
// It returns io.EOF when the source is exhausted.
type AccelSource interface {
	Read() (orientation.Vector, error)
}

// LocationSource yields location fixes.
// Next blocks until a fix is available, ctx is done, or the source
// is exhausted (io.EOF).
type LocationSource interface {
	Next(ctx context.Context) (types.Location, error)
}

// ParseSourceSpec splits "kind:arg" source specs.
func ParseSourceSpec(spec string) (kind, arg string) {
	kind, arg, _ = strings.Cut(spec, ":")
	return kind, arg
}

func openReplay(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(params.ExpandPath(path))
}

// OpenAccelSource builds the accelerometer source named by spec.
func OpenAccelSource(ctx context.Context, spec string) (AccelSource, error) {
	kind, arg := ParseSourceSpec(spec)
	switch kind {
	case params.SourceSim, "":
		return NewSimAccelSource(nil), nil
	case params.SourcePush:
		return NewPushAccelSource(), nil
	case params.SourceReplay:
		r, err := openReplay(arg)
		if err != nil {
			return nil, err
		}
		return NewReplayAccelSource(ctx, r), nil
	}
	return nil, fmt.Errorf("unknown accelerometer source %q", spec)
}

// OpenLocationSource builds the location source named by spec.
func OpenLocationSource(ctx context.Context, spec string, config *params.LocationConfig) (LocationSource, error) {
	if config == nil {
		config = params.DefaultLocationConfig()
	}
	kind, arg := ParseSourceSpec(spec)
	switch kind {
	case params.SourceSim, "":
		return NewSimLocationSource(nil), nil
	case params.SourcePush:
		return NewPushLocationSource(config.PushBuffer), nil
	case params.SourceReplay:
		r, err := openReplay(arg)
		if err != nil {
			return nil, err
		}
		return NewReplayLocationSource(ctx, r), nil
	case params.SourceNMEA:
		r, err := openReplay(arg)
		if err != nil {
			return nil, err
		}
		return NewNMEASource(r), nil
	case params.SourceSerial:
		return OpenSerialNMEA(arg, config.Baud)
	}
	return nil, fmt.Errorf("unknown location source %q", spec)
}

func closeSource(src any) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
