package poller

// Event is one readiness notification delivered by Wait.
type Event struct {
	FD       int
	Readable bool
	Writable bool
	Hup      bool
}

// Poller is the I/O multiplexing interface. A descriptor is registered with
// read interest via Add; ModRead/ModWrite switch the armed direction so a
// partially written response can resume on the next writability notification.
//
// The slice returned by Wait is reused across calls and must not be retained.
type Poller interface {
	Add(fd int) error
	ModRead(fd int) error
	ModWrite(fd int) error
	Remove(fd int) error
	Wait(timeout int) ([]Event, error)
	Close() error
}
