package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/trailhud/common"
)

// Location is one position fix: where, how fast, and when.
// Speed in mph is derived on read and never stored.
type Location struct {
	ID         string    `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	SpeedMS    float64   `json:"speedMS"`
	Date       time.Time `json:"date"`
	DateString string    `json:"dateString"`

	// Route is the name of the route being tracked when the fix was recorded.
	Route string `json:"route,omitempty"`
}

// NewLocation returns a Location with a fresh ID and formatted date.
func NewLocation(lat, lon, speedMS float64, at time.Time) Location {
	return Location{
		ID:         uuid.New().String(),
		Latitude:   lat,
		Longitude:  lon,
		SpeedMS:    speedMS,
		Date:       at,
		DateString: FormatDate(at),
	}
}

func (l Location) Kind() Kind {
	return KindLocation
}

// SpeedMPH is SpeedMS in miles per hour.
func (l Location) SpeedMPH() float64 {
	return common.SpeedMPH(l.SpeedMS)
}

// Point is the location as an orb point (lon, lat).
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// IsEmpty is useful for dealing with zero-value locations.
func (l Location) IsEmpty() bool {
	return l.Date.IsZero() && l.Latitude == 0 && l.Longitude == 0
}

// Validate rejects coordinates outside the WGS84 range.
func (l Location) Validate() error {
	if !common.IsFinite(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %v", l.Latitude)
	}
	if !common.IsFinite(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %v", l.Longitude)
	}
	if l.Date.IsZero() {
		return fmt.Errorf("missing date")
	}
	return nil
}

// Feature encodes the location as a GeoJSON point feature.
func (l Location) Feature() *geojson.Feature {
	f := geojson.NewFeature(l.Point())
	f.Properties["id"] = l.ID
	f.Properties["speedMS"] = l.SpeedMS
	f.Properties["speedMPH"] = common.DecimalToFixed(l.SpeedMPH(), 2)
	f.Properties["dateString"] = l.DateString
	f.Properties["unixTime"] = l.Date.Unix()
	f.Properties["time"] = l.Date.Format(time.RFC3339Nano)
	if l.Route != "" {
		f.Properties["route"] = l.Route
	}
	return f
}

// String is a one-line human representation.
func (l Location) String() string {
	return fmt.Sprintf("latitude: %v longitude: %v speedMS: %v date: %s",
		l.Latitude, l.Longitude, l.SpeedMS, l.DateString)
}

// LocationView is a Location with its derived values, for presentation.
type LocationView struct {
	Location
	SpeedMPH float64 `json:"speedMPH"`
}

func (l Location) View() LocationView {
	return LocationView{Location: l, SpeedMPH: l.SpeedMPH()}
}
