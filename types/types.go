// Package types holds the records that flow through trailhud:
// locations, inclines and routes.
package types

import "time"

// Kind names a record stream. It doubles as the store bucket name.
type Kind string

const (
	KindLocation Kind = "locations"
	KindIncline  Kind = "inclines"
	KindRoute    Kind = "routes"
)

func (k Kind) String() string {
	return string(k)
}

// Kinds lists the append-only reading kinds.
var Kinds = []Kind{KindLocation, KindIncline}

// ParseKind accepts singular or plural kind names.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "location", "locations":
		return KindLocation, true
	case "incline", "inclines", "inclinometer":
		return KindIncline, true
	case "route", "routes":
		return KindRoute, true
	}
	return "", false
}

// FormatDate is the wire and display format for record timestamps.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
