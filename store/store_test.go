package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendOrder(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	var want []types.Location
	for i := 0; i < 300; i++ {
		l := types.NewLocation(38+float64(i)/1000, -109, float64(i), start.Add(time.Duration(i)*time.Second))
		want = append(want, l)
		if err := s.Append(l); err != nil {
			t.Fatal(err)
		}
	}

	got, err := QueryAll[types.Location](s)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("order broken at %d", i)
		}
		if !got[i].Date.Equal(want[i].Date) || got[i].DateString != want[i].DateString {
			t.Fatalf("date mismatch at %d: %v", i, got[i])
		}
	}

	n, err := s.Count(types.KindLocation)
	if err != nil || n != 300 {
		t.Errorf("count: %d %v", n, err)
	}

	last := types.Location{}
	if err := s.Last(types.KindLocation, &last); err != nil {
		t.Fatal(err)
	}
	if last.ID != want[len(want)-1].ID {
		t.Errorf("last: %v", last)
	}
}

func TestStore_LastNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.Last(types.KindIncline, &types.Incline{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if n, _ := s.Count(types.KindIncline); n != 0 {
		t.Errorf("want 0, got %d", n)
	}
}

func TestStore_Inclines(t *testing.T) {
	s := openTestStore(t)
	in := types.NewIncline(orientation.Vector{X: 1, Y: 9}, orientation.Attitude{PitchDegrees: -5, RollDegrees: 10}, time.Now())
	if err := s.Append(in); err != nil {
		t.Fatal(err)
	}
	got, err := QueryAll[types.Incline](s)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Attitude() != in.Attitude() || got[0].Vector() != in.Vector() {
		t.Errorf("got %v", got)
	}
}

func TestStore_QueryRoute(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	route := types.NewRoute("moab", start)
	if err := s.Append(route); err != nil {
		t.Fatal(err)
	}

	before := types.NewIncline(orientation.Vector{Y: 1}, orientation.Attitude{}, start.Add(-time.Minute))
	during := types.NewIncline(orientation.Vector{Y: 1}, orientation.Attitude{RollDegrees: 25}, start.Add(time.Minute))
	for _, in := range []types.Incline{before, during} {
		s.Append(in)
	}
	tagged := types.NewLocation(38.5, -109.5, 5, start.Add(time.Minute))
	tagged.Route = "moab"
	untagged := types.NewLocation(38.6, -109.6, 5, start.Add(time.Minute))
	s.Append(tagged)
	s.Append(untagged)

	route.End = start.Add(2 * time.Minute)
	if err := s.PutRoute(route); err != nil {
		t.Fatal(err)
	}

	got, locs, inclines, err := s.QueryRoute("moab")
	if err != nil {
		t.Fatal(err)
	}
	if got.Active() {
		t.Error("route should be stopped")
	}
	if len(locs) != 1 || locs[0].ID != tagged.ID {
		t.Errorf("locations: %v", locs)
	}
	if len(inclines) != 1 || inclines[0].ID != during.ID {
		t.Errorf("inclines: %v", inclines)
	}

	routes, err := s.Routes()
	if err != nil || len(routes) != 1 {
		t.Errorf("routes: %v %v", routes, err)
	}

	if _, _, _, err := s.QueryRoute("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestStore_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")
	s, err := Open(path, false)
	if err != nil {
		t.Fatal(err)
	}
	s.Append(types.NewLocation(1, 2, 3, time.Now()))
	s.Close()

	ro, err := Open(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	if !ro.ReadOnly() {
		t.Error("want read only")
	}
	if n, _ := ro.Count(types.KindLocation); n != 1 {
		t.Errorf("want 1, got %d", n)
	}
	if err := ro.Append(types.NewLocation(1, 2, 3, time.Now())); err == nil {
		t.Error("append to read only store should fail")
	}
}
