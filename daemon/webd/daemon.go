package webd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/olahol/melody"
	"github.com/rotblauer/trailhud/cache"
	"github.com/rotblauer/trailhud/events"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/sensors"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/tracking"
	"github.com/rotblauer/trailhud/types"
)

// Deps are the collaborators the web daemon reads from and writes to.
// The push sources are nil unless the matching sensor is fed over HTTP.
type Deps struct {
	Store    *store.Store
	Latest   *cache.Latest
	Recorder *tracking.Recorder
	Bus      *events.Bus

	AccelPush    *sensors.PushAccelSource
	LocationPush *sensors.PushLocationSource

	// Registry is served at /debug/metrics. Defaults to metrics.DefaultRegistry.
	Registry metrics.Registry
}

type WebDaemon struct {
	Config *params.WebDaemonConfig
	Deps

	logger         *slog.Logger
	started        time.Time
	melodyInstance *melody.Melody
	summaries      *lru.Cache[string, types.RouteSummary]

	mu       sync.Mutex
	listener net.Listener
}

func NewWebDaemon(config *params.WebDaemonConfig, deps Deps) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	if deps.Store == nil || deps.Latest == nil || deps.Recorder == nil || deps.Bus == nil {
		return nil, errors.New("web daemon: missing store, latest cache, recorder or bus")
	}
	if deps.Registry == nil {
		deps.Registry = metrics.DefaultRegistry
	}
	summaries, err := lru.New[string, types.RouteSummary](128)
	if err != nil {
		return nil, err
	}
	s := &WebDaemon{
		Config:    config,
		Deps:      deps,
		logger:    slog.With("d", "web"),
		started:   time.Now(),
		summaries: summaries,
	}
	s.initMelody()
	return s, nil
}

// Addr is the address the daemon is listening on, once running.
func (s *WebDaemon) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves HTTP and broadcasts bus events to websocket clients
// until ctx is done.
func (s *WebDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return fmt.Errorf("web daemon listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.broadcast(ctx)

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Web daemon listening", "address", ln.Addr().String())
		errs <- server.Serve(ln)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Web daemon shutting down")
	_ = s.melodyInstance.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// Handler is the full HTTP handler, CORS included.
func (s *WebDaemon) Handler() http.Handler {
	return s.corsMiddleware(s.NewRouter())
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(s.loggingMiddleware)

	router.Path("/ping").HandlerFunc(pingPong)
	router.Path("/hud/ws").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.melodyInstance.HandleRequest(w, r); err != nil {
			s.logger.Warn("Websocket upgrade failed", "error", err)
		}
	})
	router.Path("/debug/metrics").Handler(prometheus.Handler(s.Registry))

	apiJSONRoutes := router.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/hud").HandlerFunc(s.handleHUD).Methods(http.MethodGet)
	apiJSONRoutes.Path("/locations").HandlerFunc(s.handleLocations).Methods(http.MethodGet)
	apiJSONRoutes.Path("/inclines").HandlerFunc(s.handleInclines).Methods(http.MethodGet)
	apiJSONRoutes.Path("/routes").HandlerFunc(s.handleRoutes).Methods(http.MethodGet)
	apiJSONRoutes.Path("/routes/{name}").HandlerFunc(s.handleRoute).Methods(http.MethodGet)
	apiJSONRoutes.Path("/routes/{name}/geojson").HandlerFunc(s.handleRouteGeoJSON).Methods(http.MethodGet)

	authenticatedAPIRoutes := apiJSONRoutes.NewRoute().Subrouter()
	authenticatedAPIRoutes.Use(s.tokenAuthenticationMiddleware)

	authenticatedAPIRoutes.Path("/tracking/start").HandlerFunc(s.handleTrackingStart).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/tracking/stop").HandlerFunc(s.handleTrackingStop).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/location").HandlerFunc(s.handleIngestLocation).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/acceleration").HandlerFunc(s.handleIngestAcceleration).Methods(http.MethodPost)

	return router
}
