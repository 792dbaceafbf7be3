package webd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/stream"
	"github.com/rotblauer/trailhud/types"
	"github.com/tidwall/gjson"
)

func TestWebDaemon_ping(t *testing.T) {
	req := httptest.NewRequest("GET", "http://localhost/ping", nil)
	w := httptest.NewRecorder()
	pingPong(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if string(body) != "pong" {
		t.Errorf("body is not pong: %s", string(body))
	}
}

func TestWebDaemon_statusReport(t *testing.T) {
	d := newTestWebDaemon(t, "secret")
	w := httptest.NewRecorder()
	d.statusReport(w, httptest.NewRequest("GET", "http://localhost/status", nil))
	body, _ := io.ReadAll(w.Result().Body)
	if gjson.GetBytes(body, "uptime").String() == "" {
		t.Fatal("uptime is empty")
	}
	if gjson.GetBytes(body, "config.Token").Exists() || strings.Contains(string(body), "secret") {
		t.Errorf("token leaked in status: %s", body)
	}
	if !gjson.GetBytes(body, "tracking").Exists() {
		t.Error("missing tracking")
	}
}

func TestWebDaemon_handleHUD(t *testing.T) {
	d := newTestWebDaemon(t, "")

	w := httptest.NewRecorder()
	d.handleHUD(w, httptest.NewRequest("GET", "http://localhost/hud", nil))
	body, _ := io.ReadAll(w.Result().Body)
	if gjson.GetBytes(body, "incline").Type != gjson.Null || gjson.GetBytes(body, "location").Type != gjson.Null {
		t.Fatalf("empty hud should be null: %s", body)
	}

	d.Latest.SetIncline(types.NewIncline(orientation.Vector{X: 4.905, Y: 8.496}, orientation.Attitude{RollDegrees: 30}, time.Now()))
	d.Latest.SetLocation(types.NewLocation(38.5, -109.5, 44.704, time.Now()))

	w = httptest.NewRecorder()
	d.handleHUD(w, httptest.NewRequest("GET", "http://localhost/hud", nil))
	body, _ = io.ReadAll(w.Result().Body)
	if got := gjson.GetBytes(body, "incline.rollDegrees").Int(); got != 30 {
		t.Errorf("roll: %d", got)
	}
	if got := gjson.GetBytes(body, "location.speedMPH").Float(); got < 99.99 || got > 100.01 {
		t.Errorf("speedMPH: %v", got)
	}
	if gjson.GetBytes(body, "location.dateString").String() == "" {
		t.Errorf("dateString missing: %s", body)
	}
}

func TestWebDaemon_handleLocations_Limit(t *testing.T) {
	d := newTestWebDaemon(t, "")
	start := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := d.Store.Append(types.NewLocation(38, -109, float64(i), start.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	d.handleLocations(w, httptest.NewRequest("GET", "http://localhost/locations?limit=3", nil))
	body, _ := io.ReadAll(w.Result().Body)
	arr := gjson.ParseBytes(body).Array()
	if len(arr) != 3 {
		t.Fatalf("want 3, got %d: %s", len(arr), body)
	}
	if arr[0].Get("speedMS").Float() != 7 || arr[2].Get("speedMS").Float() != 9 {
		t.Errorf("want last 3 oldest first: %s", body)
	}
	if !arr[0].Get("speedMPH").Exists() {
		t.Error("speedMPH missing")
	}

	w = httptest.NewRecorder()
	d.handleLocations(w, httptest.NewRequest("GET", "http://localhost/locations", nil))
	body, _ = io.ReadAll(w.Result().Body)
	if n := len(gjson.ParseBytes(body).Array()); n != 10 {
		t.Errorf("want 10, got %d", n)
	}

	d.Config.RecentLimit = 4
	w = httptest.NewRecorder()
	d.handleLocations(w, httptest.NewRequest("GET", "http://localhost/locations", nil))
	body, _ = io.ReadAll(w.Result().Body)
	if n := len(gjson.ParseBytes(body).Array()); n != 4 {
		t.Errorf("want default limit 4, got %d", n)
	}
	w = httptest.NewRecorder()
	d.handleLocations(w, httptest.NewRequest("GET", "http://localhost/locations?limit=0", nil))
	body, _ = io.ReadAll(w.Result().Body)
	if n := len(gjson.ParseBytes(body).Array()); n != 10 {
		t.Errorf("want all with limit=0, got %d", n)
	}

	w = httptest.NewRecorder()
	d.handleInclines(w, httptest.NewRequest("GET", "http://localhost/inclines?limit=x", nil))
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("want 400 for bad limit, got %d", w.Result().StatusCode)
	}
}

func TestWebDaemon_routes(t *testing.T) {
	d := newTestWebDaemon(t, "")
	if _, err := d.Recorder.Start("moab"); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	for i := 0; i < 3; i++ {
		l := types.NewLocation(38.5+float64(i)*0.001, -109.5, 5, now.Add(time.Duration(i)*time.Second))
		if err := d.Recorder.RecordLocation(l); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	d.handleRoutes(w, httptest.NewRequest("GET", "http://localhost/routes", nil))
	body, _ := io.ReadAll(w.Result().Body)
	if gjson.GetBytes(body, "0.name").String() != "moab" {
		t.Fatalf("routes: %s", body)
	}

	req := mux.SetURLVars(httptest.NewRequest("GET", "http://localhost/routes/moab", nil), map[string]string{"name": "moab"})
	w = httptest.NewRecorder()
	d.handleRoute(w, req)
	body, _ = io.ReadAll(w.Result().Body)
	if gjson.GetBytes(body, "points").Int() != 3 {
		t.Errorf("points: %s", body)
	}
	if d := gjson.GetBytes(body, "distance").Float(); d < 200 || d > 250 {
		t.Errorf("distance: %v", d)
	}

	req = mux.SetURLVars(httptest.NewRequest("GET", "http://localhost/routes/moab/geojson", nil), map[string]string{"name": "moab"})
	w = httptest.NewRecorder()
	d.handleRouteGeoJSON(w, req)
	body, _ = io.ReadAll(w.Result().Body)
	if gjson.GetBytes(body, "features.#").Int() != 4 {
		t.Errorf("want line + 3 points: %s", body)
	}
	if gjson.GetBytes(body, "features.0.geometry.type").String() != "LineString" {
		t.Errorf("first feature not a line: %s", body)
	}

	req = mux.SetURLVars(httptest.NewRequest("GET", "http://localhost/routes/nope", nil), map[string]string{"name": "nope"})
	w = httptest.NewRecorder()
	d.handleRoute(w, req)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("want 404, got %d", w.Result().StatusCode)
	}
}

func TestWebDaemon_tracking(t *testing.T) {
	d := newTestWebDaemon(t, "")
	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	post := func(path, body string) (*http.Response, []byte) {
		res, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()
		b, _ := io.ReadAll(res.Body)
		return res, b
	}

	res, body := post("/tracking/start", `{"route":"moab"}`)
	if res.StatusCode != http.StatusCreated || gjson.GetBytes(body, "startDateString").String() == "" {
		t.Fatalf("start: %d %s", res.StatusCode, body)
	}
	if res, _ := post("/tracking/start", `{"route":"again"}`); res.StatusCode != http.StatusConflict {
		t.Errorf("want 409, got %d", res.StatusCode)
	}
	if res, _ := post("/tracking/stop", ``); res.StatusCode != http.StatusOK {
		t.Errorf("stop: %d", res.StatusCode)
	}
	if res, _ := post("/tracking/stop", ``); res.StatusCode != http.StatusConflict {
		t.Errorf("want 409, got %d", res.StatusCode)
	}
}

func TestWebDaemon_ingest(t *testing.T) {
	d := newTestWebDaemon(t, "secret")
	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	body := `{"latitude":38.5,"longitude":-109.5,"speedMS":3,"dateString":"2020-09-01T12:00:00Z"}
{"latitude":38.6,"longitude":-109.6,"speedMS":4,"dateString":"2020-09-01T12:00:01Z"}`

	res, err := http.Post(ts.URL+"/location", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 without token, got %d", res.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/location", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted || gjson.GetBytes(got, "accepted").Int() != 2 {
		t.Fatalf("push: %d %s", res.StatusCode, got)
	}
	l, err := d.LocationPush.Next(context.Background())
	if err != nil || l.Latitude != 38.5 {
		t.Errorf("queued: %v %v", l, err)
	}

	res, err = http.Post(ts.URL+"/acceleration?api_token=secret", "application/json", strings.NewReader(`{"x":0,"y":-1,"z":0}`))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("accel push: %d", res.StatusCode)
	}
	if v, err := d.AccelPush.Read(); err != nil || v.Y != -1 {
		t.Errorf("accel: %v %v", v, err)
	}

	res, err = http.Post(ts.URL+"/acceleration?api_token=secret", "application/json", strings.NewReader(`{"x":0}`))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("want 400 for bad sample, got %d", res.StatusCode)
	}
}

func TestWebDaemon_cors(t *testing.T) {
	d := newTestWebDaemon(t, "")
	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/location", nil)
	req.Header.Set("Origin", "http://gauge.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("missing CORS headers: %v", res.Header)
	}
}

func TestWebDaemon_metrics(t *testing.T) {
	d := newTestWebDaemon(t, "")
	metrics.GetOrRegisterCounter("test/counter", d.Registry).Inc(3)
	meter := stream.NewMeter(d.Registry, "sensors/accel", 0)
	defer meter.Stop()
	meter.Mark(time.Now())

	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/debug/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	for _, want := range []string{"test_counter 3", "sensors_accel_count"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("%s missing: %s", want, body)
		}
	}
	// Scrapers reject the whole page on one bad name.
	validName := regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	for _, line := range strings.Split(string(body), "\n") {
		if !strings.HasPrefix(line, "# TYPE ") {
			continue
		}
		if name := strings.Fields(line)[2]; !validName.MatchString(name) {
			t.Errorf("invalid metric name %q", name)
		}
	}
}

func TestWebDaemon_websocket(t *testing.T) {
	d := newTestWebDaemon(t, "")
	d.Latest.SetLocation(types.NewLocation(38.5, -109.5, 3, time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.broadcast(ctx)

	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/hud/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(msg, "kind").String() != "location" || gjson.GetBytes(msg, "data.speedMPH").Float() == 0 {
		t.Errorf("connect message: %s", msg)
	}

	for d.melodyInstance.Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	for d.Bus.Subscribers() < 2 {
		time.Sleep(time.Millisecond)
	}
	d.Bus.PublishIncline(types.NewIncline(orientation.Vector{Y: 9.81}, orientation.Attitude{PitchDegrees: -5}, time.Now()))

	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(msg, "kind").String() != "incline" || gjson.GetBytes(msg, "data.pitchDegrees").Int() != -5 {
		t.Errorf("broadcast message: %s", msg)
	}
}

func TestWebDaemon_Run(t *testing.T) {
	d := newTestWebDaemon(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- d.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for d.Addr() == nil {
		select {
		case <-deadline:
			t.Fatal("never listened")
		case <-time.After(5 * time.Millisecond):
		}
	}
	res, err := http.Get("http://" + d.Addr().String() + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("ping: %d", res.StatusCode)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
