package sensors

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geo"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/types"
)

func TestParseSourceSpec(t *testing.T) {
	cases := map[string][2]string{
		"sim":                 {"sim", ""},
		"replay:/tmp/a.json":  {"replay", "/tmp/a.json"},
		"serial:/dev/ttyACM0": {"serial", "/dev/ttyACM0"},
		"replay:-":            {"replay", "-"},
	}
	for spec, want := range cases {
		kind, arg := ParseSourceSpec(spec)
		if kind != want[0] || arg != want[1] {
			t.Errorf("%s: got %q %q", spec, kind, arg)
		}
	}
	if _, err := OpenAccelSource(context.Background(), "bogus"); err == nil {
		t.Error("unknown accel source should fail")
	}
	if _, err := OpenLocationSource(context.Background(), "bogus", nil); err == nil {
		t.Error("unknown location source should fail")
	}
}

func TestSampleFor_RoundTrip(t *testing.T) {
	est := orientation.NewEstimator(1)
	for _, c := range []struct{ pitch, roll int }{
		{0, 0}, {10, 0}, {0, 25}, {-15, -20}, {30, 45},
	} {
		raw := SampleFor(float64(c.pitch)*math.Pi/180, float64(c.roll)*math.Pi/180)
		got := est.Estimate(orientation.GravityCorrect(raw, 9.81))
		if got.PitchDegrees != c.pitch || got.RollDegrees != c.roll {
			t.Errorf("pitch %d roll %d: got %+v", c.pitch, c.roll, got)
		}
	}
}

func TestSimLocationSource_Speed(t *testing.T) {
	start := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	s := NewSimLocationSource(func() time.Time { return start })
	a := s.At(start)
	b := s.At(start.Add(time.Second))
	d := geo.Distance(a.Point(), b.Point())
	if math.Abs(d-s.SpeedMS) > 0.1 {
		t.Errorf("want ~%v m/s, moved %v m", s.SpeedMS, d)
	}
	if r := geo.Distance(s.Center, a.Point()); math.Abs(r-s.Radius) > 1 {
		t.Errorf("want radius %v, got %v", s.Radius, r)
	}
	if a.Validate() != nil {
		t.Errorf("invalid sim location: %v", a.Validate())
	}
}

func TestPushSources(t *testing.T) {
	acc := NewPushAccelSource()
	if _, err := acc.Read(); !errors.Is(err, ErrNoSample) {
		t.Errorf("want ErrNoSample, got %v", err)
	}
	acc.Push(orientation.Vector{X: 1})
	acc.Push(orientation.Vector{X: 2})
	v, err := acc.Read()
	if err != nil || v.X != 2 {
		t.Errorf("want latest push, got %v %v", v, err)
	}
	if _, err := acc.Read(); !errors.Is(err, ErrNoSample) {
		t.Error("sample should be read once")
	}

	loc := NewPushLocationSource(1)
	if err := loc.Push(types.NewLocation(1, 2, 3, time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := loc.Push(types.NewLocation(1, 2, 3, time.Now())); !errors.Is(err, ErrQueueFull) {
		t.Errorf("want ErrQueueFull, got %v", err)
	}
	if _, err := loc.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := loc.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("want canceled, got %v", err)
	}
}

func TestNMEASource(t *testing.T) {
	input := strings.Join([]string{
		"garbage",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D",
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
		"$GPRMC,bad*00",
	}, "\r\n")
	src := NewNMEASource(strings.NewReader(input))

	l, err := src.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(l.Latitude-48.1173) > 1e-4 || math.Abs(l.Longitude-11.516666) > 1e-4 {
		t.Errorf("coords: %v", l)
	}
	if math.Abs(l.SpeedMS-22.4*metersPerSecondPerKnot) > 1e-9 {
		t.Errorf("speed: %v", l.SpeedMS)
	}
	if want := time.Date(1994, 3, 23, 12, 35, 19, 0, time.UTC); !l.Date.Equal(want) {
		t.Errorf("date: %v", l.Date)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("want EOF, got %v", err)
	}
}

func TestReplayLocationSource(t *testing.T) {
	input := `{"latitude":38.5,"longitude":-109.5,"speedMS":3,"dateString":"2020-09-01T12:00:00Z"}
not json at all
`
	src := NewReplayLocationSource(context.Background(), io.NopCloser(strings.NewReader(input)))
	defer src.Close()
	l, err := src.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if l.Latitude != 38.5 || l.ID == "" {
		t.Errorf("got %v", l)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("want EOF, got %v", err)
	}
}

func TestAccelerometerService_Replay(t *testing.T) {
	input := `{"x":0,"y":-1,"z":0}
{"x":-0.5,"y":-0.866,"z":0}
{"x":0,"y":0,"z":0}
`
	bus := events.NewBus()
	defer bus.Close()
	ch := make(chan types.Incline, 8)
	sub := bus.SubscribeInclines(ch)
	defer sub.Unsubscribe()

	src := NewReplayAccelSource(context.Background(), io.NopCloser(strings.NewReader(input)))
	config := params.DefaultAccelerometerConfig()
	config.Interval = time.Millisecond
	config.MeterLogInterval = 0
	svc := NewAccelerometerService(src, bus, nil, config)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(ch)
	var got []types.Incline
	for in := range ch {
		got = append(got, in)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 inclines, got %d", len(got))
	}
	if got[0].PitchDegrees != 0 || got[0].RollDegrees != 0 {
		t.Errorf("upright: %+v", got[0].Attitude())
	}
	if got[1].RollDegrees != 30 {
		t.Errorf("tilted: %+v", got[1].Attitude())
	}
	if got[2].Attitude() != (orientation.Attitude{}) {
		t.Errorf("degenerate: %+v", got[2].Attitude())
	}
	if got[0].Y <= 0 {
		t.Errorf("vector not gravity corrected: %+v", got[0].Vector())
	}
}

func TestLocationService_Push(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := make(chan types.Location, 1)
	sub := bus.SubscribeLocations(ch)
	defer sub.Unsubscribe()

	src := NewPushLocationSource(4)
	svc := NewLocationService(src, bus)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- svc.Run(ctx) }()

	src.Push(types.Location{Latitude: 1, Longitude: 2, Date: time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)})
	select {
	case l := <-ch:
		if l.ID == "" || l.DateString != "2020-09-01T00:00:00Z" {
			t.Errorf("not filled: %v", l)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

// Stdin is wrapped in a NopCloser, so closing the source cannot unblock
// its reader; cancelling ctx alone has to end the run.
func TestServices_StopWithBlockedReader(t *testing.T) {
	waitDone := func(t *testing.T, name string, done <-chan error) {
		t.Helper()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("%s: %v", name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not return after cancel", name)
		}
	}

	t.Run("nmea", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()
		bus := events.NewBus()
		defer bus.Close()
		svc := NewLocationService(NewNMEASource(io.NopCloser(pr)), bus)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()
		time.Sleep(20 * time.Millisecond)
		cancel()
		waitDone(t, "LocationService.Run", done)
	})

	t.Run("replay location", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()
		bus := events.NewBus()
		defer bus.Close()
		svc := NewLocationService(NewReplayLocationSource(context.Background(), io.NopCloser(pr)), bus)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()
		time.Sleep(20 * time.Millisecond)
		cancel()
		waitDone(t, "LocationService.Run", done)
	})

	t.Run("replay accel", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()
		bus := events.NewBus()
		defer bus.Close()
		config := params.DefaultAccelerometerConfig()
		config.Interval = time.Millisecond
		config.MeterLogInterval = 0
		src := NewReplayAccelSource(context.Background(), io.NopCloser(pr))
		svc := NewAccelerometerService(src, bus, nil, config)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()
		time.Sleep(20 * time.Millisecond)
		cancel()
		waitDone(t, "AccelerometerService.Run", done)
	})
}

func TestReplayAccelSource_NoSampleWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewReplayAccelSource(context.Background(), io.NopCloser(pr))
	defer src.Close()

	if _, err := src.Read(); !errors.Is(err, ErrNoSample) {
		t.Fatalf("want ErrNoSample, got %v", err)
	}
	go pw.Write([]byte(`{"x":0,"y":-1,"z":0}` + "\n"))
	deadline := time.After(time.Second)
	for {
		v, err := src.Read()
		if err == nil {
			if v.Y != -1 {
				t.Errorf("got %+v", v)
			}
			return
		}
		if !errors.Is(err, ErrNoSample) {
			t.Fatal(err)
		}
		select {
		case <-deadline:
			t.Fatal("sample never arrived")
		case <-time.After(time.Millisecond):
		}
	}
}
