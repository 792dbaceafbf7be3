package types

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/trailhud/common"
)

// Route is a named tracking session.
// Locations recorded while the route is active carry its name.
type Route struct {
	Name            string    `json:"name"`
	Start           time.Time `json:"start"`
	StartDateString string    `json:"startDateString"`
	End             time.Time `json:"end"`
}

func NewRoute(name string, start time.Time) Route {
	return Route{
		Name:            name,
		Start:           start,
		StartDateString: FormatDate(start),
	}
}

func (r Route) Kind() Kind {
	return KindRoute
}

// Active is true until the route has been stopped.
func (r Route) Active() bool {
	return r.End.IsZero()
}

// Contains reports whether t falls within the route window.
// An active route has no upper bound.
func (r Route) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return r.Active() || !t.After(r.End)
}

// RouteSummary is derived from a route's locations and inclines.
type RouteSummary struct {
	Route

	Points    int     `json:"points"`
	Inclines  int     `json:"inclines"`
	Distance  float64 `json:"distance"` // meters traversed
	Duration  float64 `json:"duration"` // seconds
	SpeedMean float64 `json:"speedMean"`
	SpeedMed  float64 `json:"speedMedian"`
	SpeedMax  float64 `json:"speedMax"`

	SpeedMeanMPH float64 `json:"speedMeanMPH"`
	SpeedMaxMPH  float64 `json:"speedMaxMPH"`

	PitchMaxAbs int `json:"pitchMaxAbs"`
	RollMaxAbs  int `json:"rollMaxAbs"`
}

// Summarize computes a RouteSummary. Locations are assumed chronological.
func Summarize(route Route, locations []Location, inclines []Incline) RouteSummary {
	s := RouteSummary{
		Route:    route,
		Points:   len(locations),
		Inclines: len(inclines),
	}

	speeds := make([]float64, 0, len(locations))
	for i, l := range locations {
		speeds = append(speeds, l.SpeedMS)
		if i == 0 {
			continue
		}
		s.Distance += geo.Distance(locations[i-1].Point(), l.Point())
	}
	if len(locations) > 1 {
		s.Duration = locations[len(locations)-1].Date.Sub(locations[0].Date).Round(time.Second).Seconds()
	}

	statsMustFloat := func(fn func() (float64, error)) float64 {
		out, err := fn()
		if err != nil {
			return 0
		}
		return out
	}
	data := stats.Float64Data(speeds)
	s.SpeedMean = common.DecimalToFixed(statsMustFloat(data.Mean), 2)
	s.SpeedMed = common.DecimalToFixed(statsMustFloat(data.Median), 2)
	s.SpeedMax = common.DecimalToFixed(statsMustFloat(data.Max), 2)
	s.SpeedMeanMPH = common.DecimalToFixed(common.SpeedMPH(s.SpeedMean), 2)
	s.SpeedMaxMPH = common.DecimalToFixed(common.SpeedMPH(s.SpeedMax), 2)
	s.Distance = math.Round(s.Distance)

	for _, in := range inclines {
		if p := abs(in.PitchDegrees); p > s.PitchMaxAbs {
			s.PitchMaxAbs = p
		}
		if r := abs(in.RollDegrees); r > s.RollMaxAbs {
			s.RollMaxAbs = r
		}
	}
	return s
}

// LineFeature draws the route's locations as a GeoJSON line string.
// It returns nil for fewer than two locations.
func LineFeature(route Route, locations []Location) *geojson.Feature {
	if len(locations) < 2 {
		return nil
	}
	ls := make(orb.LineString, 0, len(locations))
	for _, l := range locations {
		ls = append(ls, l.Point())
	}
	f := geojson.NewFeature(ls)
	f.Properties["name"] = route.Name
	f.Properties["startDateString"] = route.StartDateString
	return f
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
