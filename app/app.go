package app

import (
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/searchktools/slab-server/config"
	"github.com/searchktools/slab-server/core"
)

// App ties configuration, the engine, and process lifecycle together.
type App struct {
	cfg *config.Config
	srv *core.Server
	log *slog.Logger
}

// New creates an application instance.
func New(cfg *config.Config) *App {
	// Less frequent GC: the engine allocates almost nothing per request, so
	// a higher target trades idle memory for fewer pauses.
	if cfg.GCPercent > 0 {
		debug.SetGCPercent(cfg.GCPercent)
	}

	srv := core.NewServer(core.Options{
		Addr:        cfg.Addr,
		Workers:     cfg.Workers,
		BufSize:     cfg.BufSize,
		SlabSize:    cfg.SlabSize,
		IdleTimeout: time.Duration(cfg.IdleTimeout) * time.Second,
	})

	log := slog.Default().With("env", cfg.Env)
	srv.SetLogger(log)

	return &App{cfg: cfg, srv: srv, log: log}
}

// Server returns the underlying engine for route registration.
func (a *App) Server() *core.Server {
	return a.srv
}

// Run starts the engine and blocks until SIGINT/SIGTERM.
func (a *App) Run() {
	go a.awaitSignal()

	if err := a.srv.Run(); err != nil {
		a.log.Error("server startup failed", "err", err)
		os.Exit(1)
	}

	snap := a.srv.Snapshot()
	a.log.Info("shutdown complete",
		"requests", snap.Requests,
		"bytes_sent", snap.BytesSent,
	)
}

func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	a.log.Info("signal received, shutting down", "signal", sig.String())
	a.srv.Shutdown()
}
