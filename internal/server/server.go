// Package server exposes the dashboard pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/KaramelBytes/skyscope/internal/dashboard"
	"github.com/KaramelBytes/skyscope/internal/dataset"
	"github.com/KaramelBytes/skyscope/internal/logging"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
)

// Loader fetches a fresh dataset. It is called once by New and again on every reload.
type Loader func(ctx context.Context) (*dataset.Dataset, error)

// Options configure a Server.
type Options struct {
	Addr           string
	HeightPolicy   pipeline.HeightPolicy
	DensityCellDeg float64
	// Defaults fill criteria fields a client leaves out.
	Defaults       dashboard.Request
	RateLimitRPS   float64
	RateLimitBurst int
	CacheEntries   int
	SummaryTopN    int
}

// Server holds one loaded dataset and serves dashboards computed from it.
type Server struct {
	opt  Options
	log  *logging.Logger
	load Loader

	mu  sync.RWMutex
	ds  *dataset.Dataset
	gen uint64

	cache    *lru
	group    singleflight.Group
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
}

// New loads the initial dataset. A load failure is returned as is, so the
// caller can refuse to start.
func New(ctx context.Context, load Loader, opt Options, log *logging.Logger) (*Server, error) {
	if load == nil {
		return nil, errors.New("server: nil loader")
	}
	if log == nil {
		log = logging.Nop()
	}
	if opt.SummaryTopN <= 0 {
		opt.SummaryTopN = 10
	}
	s := &Server{
		opt:   opt,
		log:   log,
		load:  load,
		cache: newLRU(opt.CacheEntries),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if opt.RateLimitRPS > 0 {
		burst := opt.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opt.RateLimitRPS), burst)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the dataset. On failure the previous dataset stays active.
func (s *Server) Reload(ctx context.Context) error {
	start := time.Now()
	ds, err := s.load(ctx)
	if err != nil {
		s.log.Error("dataset reload failed", "err", err)
		return err
	}
	s.mu.Lock()
	s.ds = ds
	s.gen++
	gen := s.gen
	s.mu.Unlock()
	s.cache.Purge()
	s.log.Info("dataset loaded", "name", ds.Name, "rows", ds.Len(), "generation", gen, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Server) snapshot() (*dataset.Dataset, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds, s.gen
}

// Dashboard computes (or returns a cached) dashboard for req against the
// current dataset. Identical concurrent requests share one computation; every
// response gets its own run id on a shallow copy.
func (s *Server) Dashboard(req dashboard.Request) (*dashboard.Dashboard, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ds, gen := s.snapshot()
	key := fmt.Sprintf("%d|%s|%s|%s", gen, req.Criteria.Key(), req.MapView, req.BarColor)
	if d, ok := s.cache.Get(key); ok {
		return stamp(d), nil
	}
	v, err, shared := s.group.Do(key, func() (any, error) {
		d, err := dashboard.Build(ds, req, dashboard.Options{
			HeightPolicy:   s.opt.HeightPolicy,
			DensityCellDeg: s.opt.DensityCellDeg,
		})
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, d)
		s.log.WithRun(d.RunID).Debug("dashboard built", "matched", d.Matched, "skipped_heights", len(d.SkippedHeights))
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("dashboard computation shared", "key", key)
	}
	return stamp(v.(*dashboard.Dashboard)), nil
}

// stamp returns a copy of d with a fresh run id. Views are shared read-only.
func stamp(d *dashboard.Dashboard) *dashboard.Dashboard {
	out := *d
	out.RunID = uuid.NewString()
	return &out
}

// Router wires the API, health and websocket routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit)
	api.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
	api.HandleFunc("/cities", s.handleCities).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.opt.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
