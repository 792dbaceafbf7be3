package webd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/trailhud/common"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/sensors"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/tracking"
	"github.com/rotblauer/trailhud/types"
)

// maxIngestBytes caps push bodies.
const maxIngestBytes = 4 << 20

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

type webDaemonStatus struct {
	StartedAt time.Time               `json:"started_at"`
	Uptime    string                  `json:"uptime"`
	Config    *params.WebDaemonConfig `json:"config"`
	WSOpen    bool                    `json:"ws_open"`
	WSConns   int                     `json:"ws_conns"`
	Locations int                     `json:"locations"`
	Inclines  int                     `json:"inclines"`
	Tracking  *types.Route            `json:"tracking"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		WSOpen:    !s.melodyInstance.IsClosed(),
		WSConns:   s.melodyInstance.Len(),
		Config:    s.Config,
	}
	st.Locations, _ = s.Store.Count(types.KindLocation)
	st.Inclines, _ = s.Store.Count(types.KindIncline)
	if route, ok := s.Recorder.Active(); ok {
		st.Tracking = &route
	}
	s.writeJSON(w, http.StatusOK, st)
}

// hud is what a gauge renders. Stale readings are null.
type hud struct {
	Incline  *types.Incline      `json:"incline"`
	Location *types.LocationView `json:"location"`
	Tracking *types.Route        `json:"tracking"`
}

func (s *WebDaemon) currentHUD() hud {
	h := hud{}
	if in, ok := s.Latest.Incline(); ok {
		h.Incline = &in
	}
	if l, ok := s.Latest.Location(); ok {
		v := l.View()
		h.Location = &v
	}
	if route, ok := s.Recorder.Active(); ok {
		h.Tracking = &route
	}
	return h
}

func (s *WebDaemon) handleHUD(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentHUD())
}

// queryLimit parses ?limit, falling back to def when absent.
// Zero means no limit.
func queryLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

// tailRecords decodes the stored records of T's kind, keeping the last
// limit of them (all if limit is 0).
func tailRecords[T store.Record](st *store.Store, limit int) ([]T, error) {
	if limit == 0 {
		return store.QueryAll[T](st)
	}
	var zero T
	ring := common.NewRingBuffer[T](limit)
	err := st.ForEach(zero.Kind(), func(data []byte) error {
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil
		}
		ring.Add(rec)
		return nil
	})
	return ring.Get(), err
}

func handleRecords[T store.Record](s *WebDaemon, w http.ResponseWriter, r *http.Request, view func(T) any) {
	limit, err := queryLimit(r, s.Config.RecentLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recs, err := tailRecords[T](s.Store, limit)
	if err != nil {
		s.logger.Error("Failed to read records", "error", err)
		http.Error(w, "Failed to read records", http.StatusInternalServerError)
		return
	}
	out := make([]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, view(rec))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *WebDaemon) handleLocations(w http.ResponseWriter, r *http.Request) {
	handleRecords(s, w, r, func(l types.Location) any { return l.View() })
}

func (s *WebDaemon) handleInclines(w http.ResponseWriter, r *http.Request) {
	handleRecords(s, w, r, func(in types.Incline) any { return in })
}

func (s *WebDaemon) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.Store.Routes()
	if err != nil {
		s.logger.Error("Failed to read routes", "error", err)
		http.Error(w, "Failed to read routes", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, routes)
}

// routeSummary summarizes a stored route. Summaries are cached by
// name, point count and end time, so an active route is recomputed
// only once it has new points.
func (s *WebDaemon) routeSummary(name string) (types.RouteSummary, []types.Location, error) {
	route, locs, inclines, err := s.Store.QueryRoute(name)
	if err != nil {
		return types.RouteSummary{}, nil, err
	}
	key := fmt.Sprintf("%s/%d/%d/%d", name, len(locs), len(inclines), route.End.Unix())
	if sum, ok := s.summaries.Get(key); ok {
		return sum, locs, nil
	}
	sum := types.Summarize(route, locs, inclines)
	s.summaries.Add(key, sum)
	return sum, locs, nil
}

func (s *WebDaemon) handleRouteError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, fmt.Sprintf("no route %q", name), http.StatusNotFound)
		return
	}
	s.logger.Error("Failed to read route", "route", name, "error", err)
	http.Error(w, "Failed to read route", http.StatusInternalServerError)
}

func (s *WebDaemon) handleRoute(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sum, _, err := s.routeSummary(name)
	if err != nil {
		s.handleRouteError(w, name, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

// handleRouteGeoJSON draws a route: its line, then each location.
func (s *WebDaemon) handleRouteGeoJSON(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sum, locs, err := s.routeSummary(name)
	if err != nil {
		s.handleRouteError(w, name, err)
		return
	}
	fc := geojson.NewFeatureCollection()
	if line := types.LineFeature(sum.Route, locs); line != nil {
		line.Properties["distance"] = sum.Distance
		line.Properties["duration"] = sum.Duration
		fc.Append(line)
	}
	for _, l := range locs {
		fc.Append(l.Feature())
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *WebDaemon) handleTrackingStart(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Route string `json:"route"`
	}{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBytes)).Decode(&body); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	route, err := s.Recorder.Start(body.Route)
	if errors.Is(err, tracking.ErrAlreadyTracking) {
		s.writeJSON(w, http.StatusConflict, route)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, route)
}

func (s *WebDaemon) handleTrackingStop(w http.ResponseWriter, r *http.Request) {
	route, err := s.Recorder.Stop()
	if errors.Is(err, tracking.ErrNotTracking) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Error("Failed to stop route", "error", err)
		http.Error(w, "Failed to stop route", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, route)
}

type ingestResult struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// handleIngestLocation accepts a location, an array or NDJSON stream of them,
// or GeoJSON point features, and queues them on the push location source.
func (s *WebDaemon) handleIngestLocation(w http.ResponseWriter, r *http.Request) {
	if s.LocationPush == nil {
		http.Error(w, "Location source is not push", http.StatusServiceUnavailable)
		return
	}
	res := ingestResult{}
	err := types.ScanJSONMessages(http.MaxBytesReader(w, r.Body, maxIngestBytes), func(msg json.RawMessage) error {
		return types.DecodeLocations(msg, func(l types.Location) error {
			if err := l.Validate(); err != nil {
				return fmt.Errorf("%w: %v", types.ErrDecodeLocation, err)
			}
			if err := s.LocationPush.Push(l); errors.Is(err, sensors.ErrQueueFull) {
				res.Dropped++
				return nil
			} else if err != nil {
				return err
			}
			res.Accepted++
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("Bad location push", "error", err, "accepted", res.Accepted)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if res.Accepted == 0 && res.Dropped > 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	s.writeJSON(w, http.StatusAccepted, res)
}

// handleIngestAcceleration accepts raw samples, in g. Only the last sample
// of a batch is kept; the accelerometer reads it on its next tick.
func (s *WebDaemon) handleIngestAcceleration(w http.ResponseWriter, r *http.Request) {
	if s.AccelPush == nil {
		http.Error(w, "Accelerometer source is not push", http.StatusServiceUnavailable)
		return
	}
	res := ingestResult{}
	err := types.ScanJSONMessages(http.MaxBytesReader(w, r.Body, maxIngestBytes), func(msg json.RawMessage) error {
		v, err := types.DecodeAcceleration(msg)
		if err != nil {
			return err
		}
		s.AccelPush.Push(v)
		res.Accepted++
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusAccepted, res)
}
