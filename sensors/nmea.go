package sensors

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/rotblauer/trailhud/stream"
	"github.com/rotblauer/trailhud/types"
	"github.com/tarm/serial"
)

const metersPerSecondPerKnot = 0.514444

// NMEASource reads RMC sentences from a GPS.
// Other sentences, invalid fixes and garbled lines are skipped.
type NMEASource struct {
	r       io.Reader
	lines   <-chan []byte
	readErr func() error
	cancel  context.CancelFunc
	logger  *slog.Logger
}

func NewNMEASource(r io.Reader) *NMEASource {
	ctx, cancel := context.WithCancel(context.Background())
	lines, readErr := stream.Lines(ctx, r)
	return &NMEASource{
		r:       r,
		lines:   lines,
		readErr: readErr,
		cancel:  cancel,
		logger:  slog.With("d", "nmea"),
	}
}

// OpenSerialNMEA opens a serial GPS device. Reads block until data arrives;
// Close unblocks them.
func OpenSerialNMEA(device string, baud int) (*NMEASource, error) {
	p, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, err
	}
	slog.Info("Opened serial GPS", "device", device, "baud", baud)
	return NewNMEASource(p), nil
}

// Next returns the next valid fix. It returns ctx.Err() as soon as ctx is
// done, even while the underlying reader is blocked.
func (s *NMEASource) Next(ctx context.Context) (types.Location, error) {
	for {
		var line []byte
		var ok bool
		select {
		case <-ctx.Done():
			return types.Location{}, ctx.Err()
		case line, ok = <-s.lines:
		}
		if !ok {
			if err := s.readErr(); err != nil {
				return types.Location{}, err
			}
			return types.Location{}, io.EOF
		}
		if !bytes.HasPrefix(line, []byte("$")) {
			continue
		}
		if l, ok := s.parse(string(line)); ok {
			return l, nil
		}
	}
}

func (s *NMEASource) parse(line string) (types.Location, bool) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		s.logger.Debug("Skipping NMEA line", "error", err)
		return types.Location{}, false
	}
	rmc, ok := sentence.(nmea.RMC)
	if !ok {
		return types.Location{}, false
	}
	if rmc.Validity != nmea.ValidRMC {
		s.logger.Debug("Skipping invalid fix", "time", rmc.Time.String())
		return types.Location{}, false
	}
	return types.NewLocation(rmc.Latitude, rmc.Longitude,
		rmc.Speed*metersPerSecondPerKnot, rmcTime(rmc)), true
}

func rmcTime(rmc nmea.RMC) time.Time {
	d, t := rmc.Date, rmc.Time
	if !d.Valid || !t.Valid {
		return time.Now().UTC()
	}
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}

func (s *NMEASource) Close() error {
	s.cancel()
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
