package types

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/trailhud/orientation"
	"github.com/tidwall/gjson"
)

var ErrDecodeLocation = errors.New("could not decode as location object or geojson point feature")
var ErrDecodeAcceleration = errors.New("could not decode as acceleration object")

// ScanJSONMessages reads a stream of JSON messages from an io.Reader,
// and calls onEach for each decoded message.
// The stream may be a single object, newline-delimited objects,
// or a JSON array, in which case onEach is called for each element.
// A GeoJSON FeatureCollection is a single object;
// DecodeLocations handles the 'features' within.
func ScanJSONMessages(body io.Reader, onEach func(message json.RawMessage) error) error {
	buf := bufio.NewReader(body)

	// Peek past leading whitespace to sniff array vs. object.
	var first byte
	for {
		b, err := buf.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !unicode.IsSpace(rune(b[0])) {
			first = b[0]
			break
		}
		_, _ = buf.ReadByte()
	}

	dec := json.NewDecoder(buf)
	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	for dec.More() {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode err: %w", err)
		}
		if err := onEach(msg); err != nil {
			return err
		}
	}
	return nil
}

// DecodeLocations decodes one JSON message into locations.
// Accepted shapes:
//   - a flat object {latitude, longitude, speedMS, date|dateString}
//   - a GeoJSON Feature with point geometry
//   - a GeoJSON FeatureCollection of point features
//
// Missing IDs are generated and missing dateStrings are derived.
func DecodeLocations(msg json.RawMessage, onEach func(l Location) error) error {
	parsed := gjson.ParseBytes(msg)
	if !parsed.IsObject() {
		return fmt.Errorf("%w: not an object", ErrDecodeLocation)
	}

	switch parsed.Get("type").String() {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(msg)
		if err != nil {
			return err
		}
		for _, f := range fc.Features {
			l, err := featureToLocation(f)
			if err != nil {
				return err
			}
			if err := onEach(l); err != nil {
				return err
			}
		}
		return nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(msg)
		if err != nil {
			return err
		}
		l, err := featureToLocation(f)
		if err != nil {
			return err
		}
		return onEach(l)
	}

	if !parsed.Get("latitude").Exists() || !parsed.Get("longitude").Exists() {
		return fmt.Errorf("%w: missing latitude/longitude", ErrDecodeLocation)
	}
	l := Location{}
	if err := json.Unmarshal(msg, &l); err != nil {
		// Dates in the wild are not always RFC3339;
		// fall back to field-by-field.
		l = Location{
			ID:         parsed.Get("id").String(),
			Latitude:   parsed.Get("latitude").Float(),
			Longitude:  parsed.Get("longitude").Float(),
			SpeedMS:    parsed.Get("speedMS").Float(),
			DateString: parsed.Get("dateString").String(),
			Route:      parsed.Get("route").String(),
		}
	}
	return onEach(fillLocation(l))
}

func featureToLocation(f *geojson.Feature) (Location, error) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return Location{}, fmt.Errorf("%w: geometry %T", ErrDecodeLocation, f.Geometry)
	}
	l := Location{
		ID:         f.Properties.MustString("id", ""),
		Latitude:   pt.Lat(),
		Longitude:  pt.Lon(),
		SpeedMS:    f.Properties.MustFloat64("speedMS", 0),
		DateString: f.Properties.MustString("dateString", ""),
		Route:      f.Properties.MustString("route", ""),
	}
	// time carries sub-second precision; unixTime is whole seconds.
	if t, err := time.Parse(time.RFC3339Nano, f.Properties.MustString("time", "")); err == nil {
		l.Date = t
	} else if unix, ok := f.Properties["unixTime"].(float64); ok {
		l.Date = time.Unix(int64(unix), 0).UTC()
	}
	return fillLocation(l), nil
}

// fillLocation completes a partially decoded location.
func fillLocation(l Location) Location {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Date.IsZero() && l.DateString != "" {
		if t, err := time.Parse(time.RFC3339, l.DateString); err == nil {
			l.Date = t
		}
	}
	if l.DateString == "" && !l.Date.IsZero() {
		l.DateString = FormatDate(l.Date)
	}
	return l
}

// DecodeAcceleration decodes a raw accelerometer sample.
// Axis keys may be lower or upper case, and may be nested
// under "acceleration".
func DecodeAcceleration(msg []byte) (orientation.Vector, error) {
	parsed := gjson.ParseBytes(msg)
	if nested := parsed.Get("acceleration"); nested.IsObject() {
		parsed = nested
	}
	if !parsed.IsObject() {
		return orientation.Vector{}, fmt.Errorf("%w: not an object", ErrDecodeAcceleration)
	}
	axis := func(lower, upper string) (float64, bool) {
		if v := parsed.Get(lower); v.Exists() {
			return v.Float(), true
		}
		if v := parsed.Get(upper); v.Exists() {
			return v.Float(), true
		}
		return 0, false
	}
	x, okX := axis("x", "X")
	y, okY := axis("y", "Y")
	z, okZ := axis("z", "Z")
	if !okX || !okY || !okZ {
		return orientation.Vector{}, fmt.Errorf("%w: missing axis", ErrDecodeAcceleration)
	}
	return orientation.Vector{X: x, Y: y, Z: z}, nil
}
