package middleware

import (
	"github.com/searchktools/slab-server/core/http"
)

// Func is one middleware step. It runs synchronously on the owning worker,
// before the final handler, and may call ctx.Abort to short-circuit.
type Func func(*http.Context)

// Pipeline is a fixed, ordered wrapping of handlers. No branching, no
// per-request composition: steps run in registration order and an aborted
// context skips the rest.
type Pipeline struct {
	handlers []Func
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{handlers: make([]Func, 0, 8)}
}

// Use appends a step. Must only be called before workers start.
func (p *Pipeline) Use(fn Func) *Pipeline {
	p.handlers = append(p.handlers, fn)
	return p
}

// Execute runs the steps in order, then the final handler unless aborted.
func (p *Pipeline) Execute(ctx *http.Context, final Func) {
	for _, h := range p.handlers {
		h(ctx)
		if ctx.IsAborted() {
			return
		}
	}
	final(ctx)
}
