//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

// EpollPoller is an epoll-based I/O multiplexer
type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
	out    []Event
}

// NewPoller creates a new Poller (Linux)
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &EpollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
		out:    make([]Event, 1024),
	}, nil
}

// Add registers a file descriptor with read interest. Level-triggered;
// EPOLLRDHUP detects peer shutdown.
func (p *EpollPoller) Add(fd int) error {
	ev := unix.EpollEvent{
		Events: uint32(unix.EPOLLIN) | uint32(unix.EPOLLRDHUP),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// ModRead re-arms a descriptor for readability.
func (p *EpollPoller) ModRead(fd int) error {
	ev := unix.EpollEvent{
		Events: uint32(unix.EPOLLIN) | uint32(unix.EPOLLRDHUP),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// ModWrite re-arms a descriptor for writability, used to resume a partial write.
func (p *EpollPoller) ModWrite(fd int) error {
	ev := unix.EpollEvent{
		Events: uint32(unix.EPOLLOUT) | uint32(unix.EPOLLRDHUP),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove removes a file descriptor from the watch list
func (p *EpollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait waits for I/O events
func (p *EpollPoller) Wait(timeout int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeout)
	if err != nil && err != unix.EINTR {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	out := p.out[:0]
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		out = append(out, Event{
			FD:       int(ev.Fd),
			Readable: ev.Events&uint32(unix.EPOLLIN) != 0,
			Writable: ev.Events&uint32(unix.EPOLLOUT) != 0,
			Hup:      ev.Events&uint32(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0,
		})
	}
	return out, nil
}

// Close closes the Poller
func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}
