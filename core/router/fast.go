package router

import (
	"github.com/searchktools/slab-server/core/http"
)

// FastEntry is one precomputed response. Resp is complete wire bytes; the
// worker copies them into the connection's write buffer and patches
// http.DateLen bytes at DateOff with its cached date, so the entry itself is
// never mutated after startup.
type FastEntry struct {
	method  string
	path    string
	Resp    []byte
	DateOff int
}

// FastTable is an exact-match table of precomputed responses, consulted
// before the router. A hit transitions a connection straight from parsing to
// writing, skipping routing and handler dispatch. Built at startup,
// read-only afterwards, shared by all workers without locking.
type FastTable struct {
	entries map[uint64]*FastEntry
}

// NewFastTable creates an empty fast-path table.
func NewFastTable() *FastTable {
	return &FastTable{entries: make(map[uint64]*FastEntry, 16)}
}

// RegisterStatic precomputes the response for an exact (method, path) pair.
// The bytes are rendered through the same path a handler would use, so the
// output is identical to a Data handler for the same logical response,
// modulo the Date value. Must only be called before workers start.
func (t *FastTable) RegisterStatic(method, path string, code int, contentType string, body []byte) {
	resp, off := http.BuildStatic(code, contentType, body)
	t.entries[hashRoute([]byte(method), []byte(path))] = &FastEntry{
		method:  method,
		path:    path,
		Resp:    resp,
		DateOff: off,
	}
}

// Lookup returns the entry for an exact method+path, or nil. The hash is
// verified against the stored strings so a collision can never serve the
// wrong bytes.
func (t *FastTable) Lookup(method, path []byte) *FastEntry {
	e, ok := t.entries[hashRoute(method, path)]
	if !ok {
		return nil
	}
	if string(method) != e.method || string(path) != e.path {
		return nil
	}
	return e
}

// hashRoute computes an FNV-1a hash over method and path.
func hashRoute(method, path []byte) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)
	for i := 0; i < len(method); i++ {
		hash ^= uint64(method[i])
		hash *= prime
	}
	for i := 0; i < len(path); i++ {
		hash ^= uint64(path[i])
		hash *= prime
	}
	return hash
}
