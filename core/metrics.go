package core

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Metrics is one worker's counter block. Only the owning worker increments;
// other threads may snapshot concurrently via atomic loads. Each counter
// sits on its own cache line so a cross-thread snapshot never bounces the
// line a worker is writing.
type Metrics struct {
	Requests    atomic.Uint64
	_           cpu.CacheLinePad
	ActiveConns atomic.Uint64
	_           cpu.CacheLinePad
	BytesSent   atomic.Uint64
	_           cpu.CacheLinePad
}

// MetricsSnapshot is a point-in-time copy of the counters, aggregated across
// workers by Server.Snapshot.
type MetricsSnapshot struct {
	Requests    uint64 `json:"requests"`
	ActiveConns uint64 `json:"active_connections"`
	BytesSent   uint64 `json:"bytes_sent"`
}

// Snapshot reads the counters atomically.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests:    m.Requests.Load(),
		ActiveConns: m.ActiveConns.Load(),
		BytesSent:   m.BytesSent.Load(),
	}
}
