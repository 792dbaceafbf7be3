package params

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	AppName      = "trailhud"
	EnvPrefix    = "TRAILHUD"
	StoreDBName  = "trailhud.db"
	ConfigName   = "trailhud"
	ExportsDir   = "exports"
	LocationsGZ  = "locations.geojson.gz"
	InclinesGZ   = "inclines.ndjson.gz"
	TokenEnvName = "TRAILHUD_TOKEN"
)

var DefaultDatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".trailhud")
}()

// StorePath is where the store lives under a data dir.
func StorePath(datadir string) string {
	return filepath.Join(datadir, StoreDBName)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	out, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return out
}
