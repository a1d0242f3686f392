package core

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/searchktools/slab-server/core/middleware"
	"github.com/searchktools/slab-server/core/router"
)

// Options configures the engine. Zero values fall back to defaults.
type Options struct {
	Addr        string        // listening address, default ":8080"
	Workers     int           // event loops, default NumCPU
	BufSize     int           // per-direction buffer bytes per connection, default 2048
	SlabSize    int           // connection slots per worker, default 1024
	IdleTimeout time.Duration // keep-alive idle limit, default 5s
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.BufSize < MinBufferSize {
		o.BufSize = 2048
	}
	if o.SlabSize <= 0 {
		o.SlabSize = 1024
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Second
	}
	return o
}

// Server owns the shared-at-startup pieces: the route table, the fast-path
// table, and the middleware pipeline, all frozen before workers start, plus
// one worker per core. After Run the only cross-thread traffic is metric
// snapshots.
type Server struct {
	opts     Options
	routes   *router.Router
	fast     *router.FastTable
	pipeline *middleware.Pipeline
	workers  []*Worker
	log      *slog.Logger
	stop     atomic.Bool
	started  atomic.Bool
	wg       sync.WaitGroup
}

// NewServer creates a server with the given options.
func NewServer(opts Options) *Server {
	return &Server{
		opts:     opts.withDefaults(),
		routes:   router.New(),
		fast:     router.NewFastTable(),
		pipeline: middleware.NewPipeline(),
		log:      slog.Default(),
	}
}

// Handle registers a route. Registration is startup-only; the tables are
// read-only once workers are running.
func (s *Server) Handle(method, pattern string, h router.Handler) {
	if s.started.Load() {
		panic("core: route registered after server start")
	}
	s.routes.Register(method, pattern, h)
}

func (s *Server) GET(pattern string, h router.Handler)     { s.Handle("GET", pattern, h) }
func (s *Server) POST(pattern string, h router.Handler)    { s.Handle("POST", pattern, h) }
func (s *Server) PUT(pattern string, h router.Handler)     { s.Handle("PUT", pattern, h) }
func (s *Server) DELETE(pattern string, h router.Handler)  { s.Handle("DELETE", pattern, h) }
func (s *Server) PATCH(pattern string, h router.Handler)   { s.Handle("PATCH", pattern, h) }
func (s *Server) HEAD(pattern string, h router.Handler)    { s.Handle("HEAD", pattern, h) }
func (s *Server) OPTIONS(pattern string, h router.Handler) { s.Handle("OPTIONS", pattern, h) }

// Static precomputes a response on the fast path for an exact method+path.
func (s *Server) Static(method, path string, code int, contentType string, body []byte) {
	if s.started.Load() {
		panic("core: static route registered after server start")
	}
	s.fast.RegisterStatic(method, path, code, contentType, body)
}

// Use appends a middleware step.
func (s *Server) Use(fn middleware.Func) {
	if s.started.Load() {
		panic("core: middleware registered after server start")
	}
	s.pipeline.Use(fn)
}

// SetLogger replaces the default logger before Run.
func (s *Server) SetLogger(l *slog.Logger) { s.log = l }

// Run binds every worker's listener, then starts one pinned event loop per
// worker and blocks until Shutdown. Bind failures abort startup; they are
// the only fatal class of error.
func (s *Server) Run() error {
	s.started.Store(true)
	for i := 0; i < s.opts.Workers; i++ {
		w := newWorker(i, s)
		if err := w.listen(); err != nil {
			for _, prev := range s.workers {
				prev.closeListener()
			}
			return fmt.Errorf("worker %d: %w", i, err)
		}
		s.workers = append(s.workers, w)
	}

	s.log.Info("server listening",
		"addr", s.opts.Addr,
		"workers", s.opts.Workers,
		"slots_per_worker", s.opts.SlabSize,
		"buf_size", s.opts.BufSize,
	)

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *Worker) {
			defer s.wg.Done()
			if err := w.run(); err != nil {
				s.log.Error("worker exited", "worker", w.id, "err", err)
			}
		}(w)
	}

	s.wg.Wait()
	return nil
}

// Shutdown asks every worker to stop after its current poll cycle and waits
// for them to drain.
func (s *Server) Shutdown() {
	s.stop.Store(true)
	s.wg.Wait()
}

// Snapshot aggregates per-worker counters. Safe to call from any goroutine.
func (s *Server) Snapshot() MetricsSnapshot {
	var total MetricsSnapshot
	for _, w := range s.workers {
		snap := w.metrics.Snapshot()
		total.Requests += snap.Requests
		total.ActiveConns += snap.ActiveConns
		total.BytesSent += snap.BytesSent
	}
	return total
}
