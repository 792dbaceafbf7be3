package webd

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/trailhud/cache"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/sensors"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/tracking"
)

func init() {
	accessLog = io.Discard
}

// newTestWebDaemon creates a WebDaemon over a fresh store in a temp dir,
// with push sources for both sensors.
func newTestWebDaemon(t *testing.T, token string) *WebDaemon {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), params.StoreDBName), false)
	if err != nil {
		t.Fatal(err)
	}
	bus := events.NewBus()
	t.Cleanup(func() {
		bus.Close()
		st.Close()
	})

	config := params.DefaultTestWebDaemonConfig()
	config.Token = token
	d, err := NewWebDaemon(config, Deps{
		Store:        st,
		Latest:       cache.NewLatest(nil),
		Recorder:     tracking.NewRecorder(st, 100),
		Bus:          bus,
		AccelPush:    sensors.NewPushAccelSource(),
		LocationPush: sensors.NewPushLocationSource(4),
		Registry:     metrics.NewRegistry(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return d
}
