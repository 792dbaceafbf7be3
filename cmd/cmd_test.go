package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/remote"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/stream"
	"github.com/rotblauer/trailhud/tracking"
	"github.com/rotblauer/trailhud/types"
	"github.com/tidwall/gjson"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestImportExportLocations(t *testing.T) {
	st := openTestStore(t)
	input := strings.Join([]string{
		`{"latitude":38.57,"longitude":-109.55,"speedMS":4.2,"dateString":"2020-09-01T12:00:00Z"}`,
		`{"latitude":38.57,"longitude":-109.55,"speedMS":4.2,"dateString":"2020-09-01T12:00:00Z"}`,
		`{"latitude":38.58,"longitude":-109.56,"speedMS":5.0,"dateString":"2020-09-01T12:00:01Z"}`,
		`{"latitude":138.58,"longitude":-109.56,"speedMS":5.0,"dateString":"2020-09-01T12:00:02Z"}`,
		`not json`,
	}, "\n")

	meter := stream.NewMeter(nil, "test/import/locations", 0)
	defer meter.Stop()
	err := importLocations(context.Background(), tracking.NewRecorder(st, 100), strings.NewReader(input), meter)
	if err != nil {
		t.Fatal(err)
	}
	if meter.Count() != 2 {
		t.Errorf("want 2 imported, got %d", meter.Count())
	}
	// duplicate, out of range, unparseable
	if meter.Drops() != 3 {
		t.Errorf("want 3 skipped, got %d", meter.Drops())
	}

	buf := &bytes.Buffer{}
	n, err := exportRecords(st, types.KindLocation, buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("want 2 exported, got %d", n)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if got := gjson.Get(line, "geometry.type").String(); got != "Point" {
			t.Errorf("want point feature, got %q", got)
		}
	}
	if got := gjson.Get(lines[1], "properties.speedMS").Float(); got != 5.0 {
		t.Errorf("want speedMS 5, got %v", got)
	}
}

func TestImportExportInclines(t *testing.T) {
	st := openTestStore(t)
	in := types.NewIncline(orientation.Vector{X: -4.9, Y: 8.5}, orientation.Attitude{RollDegrees: 30}, time.Now())

	src := &bytes.Buffer{}
	if err := json.NewEncoder(src).Encode(in); err != nil {
		t.Fatal(err)
	}
	src.WriteString("{\"pitchDegrees\":5}\n") // no time

	meter := stream.NewMeter(nil, "test/import/inclines", 0)
	defer meter.Stop()
	if err := importInclines(context.Background(), st, src, meter); err != nil {
		t.Fatal(err)
	}
	if meter.Count() != 1 || meter.Drops() != 1 {
		t.Errorf("want 1 imported 1 dropped, got %d/%d", meter.Count(), meter.Drops())
	}

	out := &bytes.Buffer{}
	n, err := exportRecords(st, types.KindIncline, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 exported, got %d", n)
	}
	if got := gjson.Get(out.String(), "id").String(); got != in.ID {
		t.Errorf("want id %s, got %s", in.ID, got)
	}
}

func TestImportRemoteLocations(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/location/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"_id":"a1","latitude":38.57,"longitude":-109.55,"speedMS":4.2,"dateString":"2020-09-01T12:00:00Z"},
			{"_id":"a2","latitude":38.57,"longitude":-109.55,"speedMS":4.2,"dateString":"2020-09-01T12:00:00Z"},
			{"_id":"a3","latitude":138.57,"longitude":-109.55,"speedMS":4.2,"dateString":"2020-09-01T12:00:02Z"},
			{"latitude":38.58,"longitude":-109.56,"speedMS":5,"dateString":"2020-09-01T12:00:03Z"}
		]`))
	}))
	defer ts.Close()

	config := params.DefaultSyncConfig()
	config.URL = ts.URL
	client, err := remote.NewClient(config)
	if err != nil {
		t.Fatal(err)
	}
	results, err := client.FetchLocations(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	st := openTestStore(t)
	meter := stream.NewMeter(nil, "test/import/remote", 0)
	defer meter.Stop()
	if err := importRemoteLocations(context.Background(), tracking.NewRecorder(st, 100), results, meter); err != nil {
		t.Fatal(err)
	}
	if meter.Count() != 2 || meter.Drops() != 2 {
		t.Errorf("want 2 imported 2 dropped, got %d/%d", meter.Count(), meter.Drops())
	}

	locs, err := store.QueryAll[types.Location](st)
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != 2 {
		t.Fatalf("want 2 stored, got %d", len(locs))
	}
	if locs[0].ID != "a1" || locs[1].ID == "" {
		t.Errorf("ids: %q %q", locs[0].ID, locs[1].ID)
	}
	if want := time.Date(2020, 9, 1, 12, 0, 3, 0, time.UTC); !locs[1].Date.Equal(want) {
		t.Errorf("date: %v", locs[1].Date)
	}
}
