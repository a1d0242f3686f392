/*
Package slabserver provides a thread-per-core HTTP/1.1 server engine for Go.

Slab-Server trades generality for predictability: every worker owns a pinned
OS thread, a SO_REUSEPORT listener, a readiness poller, and a fixed-capacity
connection slab. Nothing is allocated per request on the hot path, nothing is
shared between workers after startup, and when the slab is full new
connections are refused instead of queued.

Quick Start

Basic usage example:

package main

import (
    "github.com/searchktools/slab-server/app"
    "github.com/searchktools/slab-server/config"
    "github.com/searchktools/slab-server/core/http"
)

func main() {
    cfg := config.New()
    application := app.New(cfg)

    srv := application.Server()
    srv.GET("/hello", func(ctx *http.Context) {
        ctx.String(200, "Hello, World!")
    })

    srv.Static("GET", "/health", 200, "text/plain", []byte("ok"))

    application.Run()
}

Modules

The engine is organized into several modules:

  - app: Application lifecycle management
  - config: Configuration loading
  - core: Worker event loops, connection slab, per-worker metrics
  - core/http: Zero-copy parsing, response rendering
  - core/router: Flat route matching and the precomputed fast path
  - core/middleware: Middleware pipeline
  - core/poller: I/O multiplexing (epoll/kqueue)
*/
package slabserver
