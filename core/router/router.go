package router

import (
	"strings"

	"github.com/searchktools/slab-server/core/http"
)

// Handler is the function a route dispatches to. It runs synchronously on
// the owning worker and must not block.
type Handler func(*http.Context)

// NoRoute marks a connection record's cached route when nothing matched.
const NoRoute = -1

// maxPatternParams bounds :name captures per pattern, matching the
// context's fixed parameter storage.
const maxPatternParams = 8

// FastRoute marks a cached route served from the fast-path table.
const FastRoute = -2

type segment struct {
	literal string
	param   string // non-empty for :name segments
}

type route struct {
	method   string
	segments []segment
	handler  Handler
}

// Router maps (method, path) to a handler. Patterns are static segments plus
// :name parameters; lookup scans routes in registration order and the first
// match wins. The table is built at startup and read-only afterwards, so
// workers share it without locking.
type Router struct {
	routes []route
}

// New creates an empty router.
func New() *Router {
	return &Router{}
}

// Register adds a route. Must only be called before workers start.
func (r *Router) Register(method, pattern string, h Handler) {
	if len(pattern) == 0 || pattern[0] != '/' {
		panic("router: pattern must begin with '/'")
	}
	var segs []segment
	for _, part := range strings.Split(pattern[1:], "/") {
		if part == "" {
			continue
		}
		if part[0] == ':' {
			if len(part) == 1 {
				panic("router: parameter segment must be named")
			}
			segs = append(segs, segment{param: part[1:]})
		} else {
			segs = append(segs, segment{literal: part})
		}
	}
	nparams := 0
	for _, s := range segs {
		if s.param != "" {
			nparams++
		}
	}
	if nparams > maxPatternParams {
		panic("router: too many parameter segments in pattern")
	}
	r.routes = append(r.routes, route{method: method, segments: segs, handler: h})
}

// Resolve finds the first registered route matching method and path,
// records captured parameters on ctx, and returns the handler with the
// route's index. A nil handler means no match, a normal outcome rather than
// an error; the caller responds 404.
func (r *Router) Resolve(method, path []byte, ctx *http.Context) (Handler, int) {
	var vals [maxPatternParams][]byte // scratch; committed only on a full match
	for i := range r.routes {
		rt := &r.routes[i]
		if string(method) != rt.method {
			continue
		}
		n, ok := rt.match(path, vals[:])
		if !ok {
			continue
		}
		for j := 0; j < n; j++ {
			ctx.SetParam(rt.segments[paramIndex(rt.segments, j)].param, vals[j])
		}
		return rt.handler, i
	}
	return nil, NoRoute
}

// match walks path segment by segment against the pattern. A :name segment
// matches any single non-empty segment; literals match exactly. Captured
// values land in vals in pattern order.
func (rt *route) match(path []byte, vals [][]byte) (int, bool) {
	p := path
	if len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	ncaps := 0
	for _, seg := range rt.segments {
		if len(p) == 0 {
			return 0, false
		}
		end := 0
		for end < len(p) && p[end] != '/' {
			end++
		}
		part := p[:end]
		if seg.param != "" {
			if len(part) == 0 {
				return 0, false
			}
			vals[ncaps] = part
			ncaps++
		} else if string(part) != seg.literal {
			return 0, false
		}
		p = p[end:]
		if len(p) > 0 {
			p = p[1:]
		}
	}
	if len(p) != 0 {
		return 0, false
	}
	return ncaps, true
}

// paramIndex maps the k-th capture back to its pattern segment.
func paramIndex(segs []segment, k int) int {
	seen := 0
	for i := range segs {
		if segs[i].param != "" {
			if seen == k {
				return i
			}
			seen++
		}
	}
	return -1
}
