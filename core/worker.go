package core

import (
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/slab-server/core/http"
	"github.com/searchktools/slab-server/core/middleware"
	"github.com/searchktools/slab-server/core/poller"
	"github.com/searchktools/slab-server/core/router"
)

// pollInterval bounds how long a worker sleeps with nothing ready, which is
// also the resolution of the idle sweep and of shutdown.
const pollInterval = 1000 // milliseconds

const listenBacklog = 1024

// Worker is one thread-per-core event loop. It owns its listening socket
// (SO_REUSEPORT lets every worker accept from the same port independently),
// its slab, its poller, and its metrics block. Nothing here is shared with
// sibling workers; the route and fast-path tables are read-only.
type Worker struct {
	id     int
	srv    *Server
	lfd    int
	poller poller.Poller
	slab   *Slab
	fdSlot map[int]int32

	metrics Metrics
	ctx     http.Context

	dateBuf   []byte
	dateEpoch int64
	lastSweep int64

	log *slog.Logger
}

func newWorker(id int, srv *Server) *Worker {
	return &Worker{
		id:      id,
		srv:     srv,
		lfd:     -1,
		slab:    NewSlab(srv.opts.SlabSize, srv.opts.BufSize),
		fdSlot:  make(map[int]int32, srv.opts.SlabSize),
		dateBuf: make([]byte, 0, http.DateLen),
		log:     srv.log.With("worker", id),
	}
}

// listen binds this worker's own listening socket. Failure here is fatal to
// startup; it is the only error surfaced to the operator rather than
// contained to a connection.
func (w *Worker) listen() error {
	sa, err := resolveSockaddr(w.srv.opts.Addr)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("set nonblock: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("SO_REUSEPORT: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return fmt.Errorf("bind %s: %w", w.srv.opts.Addr, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return fmt.Errorf("listen %s: %w", w.srv.opts.Addr, err)
	}
	w.lfd = fd
	return nil
}

func (w *Worker) closeListener() {
	if w.lfd >= 0 {
		unix.Close(w.lfd)
		w.lfd = -1
	}
}

func resolveSockaddr(addr string) (*unix.SockaddrInet4, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	return sa, nil
}

// run drives the loop: block on readiness, advance each ready connection by
// one state-machine step, re-arm, repeat. The worker thread is pinned so the
// loop keeps its core.
func (w *Worker) run() error {
	runtime.LockOSThread()

	p, err := poller.NewPoller()
	if err != nil {
		return fmt.Errorf("poller: %w", err)
	}
	w.poller = p
	defer w.shutdown()

	if err := w.poller.Add(w.lfd); err != nil {
		return fmt.Errorf("watch listener: %w", err)
	}

	w.refreshDate(time.Now().Unix())
	w.log.Info("worker started", "addr", w.srv.opts.Addr, "slots", w.slab.Cap())

	for !w.srv.stop.Load() {
		events, err := w.poller.Wait(pollInterval)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			w.log.Error("poll failed", "err", err)
			continue
		}

		now := time.Now().Unix()
		w.refreshDate(now)

		for _, ev := range events {
			if ev.FD == w.lfd {
				w.accept(now)
				continue
			}
			slot, ok := w.fdSlot[ev.FD]
			if !ok {
				continue
			}
			c := w.slab.Get(slot)
			c.lastActive = now

			switch c.state {
			case StateReading:
				if ev.Readable || ev.Hup {
					w.advanceRead(slot)
				}
			case StateWriting:
				if ev.Writable {
					w.advanceWrite(slot)
				} else if ev.Hup {
					w.teardown(slot)
				}
			}
		}

		if now != w.lastSweep {
			w.lastSweep = now
			w.sweepIdle(now)
		}
	}
	return nil
}

func (w *Worker) shutdown() {
	for fd := range w.fdSlot {
		slot := w.fdSlot[fd]
		w.teardown(slot)
	}
	if w.poller != nil {
		w.poller.Close()
	}
	if w.lfd >= 0 {
		unix.Close(w.lfd)
	}
	w.log.Info("worker stopped", "served", w.metrics.Requests.Load())
}

// refreshDate re-renders the cached HTTP date at most once per second. Both
// the general path and the fast path stamp responses from this buffer.
func (w *Worker) refreshDate(now int64) {
	if now == w.dateEpoch {
		return
	}
	w.dateEpoch = now
	w.dateBuf = time.Unix(now, 0).UTC().AppendFormat(w.dateBuf[:0], http.TimeFormat)
}

// accept drains the listener. A full slab closes the socket immediately:
// refused connections are the defined overload behavior, never an unbounded
// queue.
func (w *Worker) accept(now int64) {
	for {
		nfd, _, err := unix.Accept(w.lfd)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR, unix.ECONNABORTED:
				continue
			default:
				w.log.Error("accept failed", "err", err)
				return
			}
		}

		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}
		unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

		slot, err := w.slab.Alloc(nfd)
		if err != nil {
			unix.Close(nfd)
			continue
		}
		if err := w.poller.Add(nfd); err != nil {
			w.slab.Free(slot)
			unix.Close(nfd)
			continue
		}

		c := w.slab.Get(slot)
		c.lastActive = now
		c.state = StateReading // Accepted -> Reading, nothing to do in between
		w.fdSlot[nfd] = slot
		w.metrics.ActiveConns.Add(1)
	}
}

// advanceRead appends newly readable bytes and tries to recognize a request.
func (w *Worker) advanceRead(slot int32) {
	c := w.slab.Get(slot)
	for {
		if int(c.readN) == len(c.rbuf) {
			// Buffer full without a complete request: hard boundary.
			w.failRequest(slot, 413)
			return
		}
		n, err := unix.Read(int(c.fd), c.rbuf[c.readN:])
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR:
				continue
			default:
				w.teardown(slot)
				return
			}
		}
		if n == 0 {
			w.teardown(slot) // peer closed
			return
		}
		c.readN += int32(n)
		w.processBuffer(slot)
		return
	}
}

// processBuffer parses the buffered bytes and dispatches a complete request.
func (w *Worker) processBuffer(slot int32) {
	c := w.slab.Get(slot)
	if c.readN == 0 {
		c.state = StateReading
		return
	}
	c.state = StateParsing
	req := w.slab.Request(slot)

	consumed, st, _ := http.Parse(c.rbuf[:c.readN], req)
	switch st {
	case http.StatusIncomplete:
		if int(c.readN) == len(c.rbuf) {
			w.failRequest(slot, 413)
			return
		}
		c.state = StateReading
	case http.StatusMalformed:
		w.failRequest(slot, 400)
	case http.StatusComplete:
		c.consumed = int32(consumed)
		w.dispatch(slot)
	}
}

// dispatch resolves a handler for the parsed request and renders its
// response into the write buffer. The fast path is consulted before the
// router and skips routing and handler dispatch entirely.
func (w *Worker) dispatch(slot int32) {
	c := w.slab.Get(slot)
	req := w.slab.Request(slot)
	c.state = StateRouting
	c.keepAlive = req.KeepAlive()

	if e := w.srv.fast.Lookup(req.Method, req.Path); e != nil {
		c.route = router.FastRoute
		if len(e.Resp) > len(c.wbuf) {
			w.failRequest(slot, 500)
			return
		}
		copy(c.wbuf, e.Resp)
		if e.DateOff >= 0 {
			copy(c.wbuf[e.DateOff:], w.dateBuf)
		}
		w.beginWrite(slot, int32(len(e.Resp)))
		return
	}

	ctx := &w.ctx
	ctx.Bind(req, c.wbuf, w.dateBuf)

	h, idx := w.srv.routes.Resolve(req.Method, req.Path, ctx)
	c.route = int32(idx)
	if h == nil {
		ctx.Error(404, "Not Found") // no match is a normal branch
	} else {
		c.state = StateHandling
		w.invoke(ctx, h)
		if !ctx.Responded() {
			ctx.Data(200, "text/plain", nil)
		}
	}

	if ctx.Overflowed() {
		w.failRequest(slot, 500)
		return
	}
	if ctx.ShouldClose() {
		c.keepAlive = false
	}
	w.beginWrite(slot, int32(ctx.Written()))
}

// invoke runs the middleware pipeline and handler with a panic boundary: a
// handler fault becomes a 500 for this connection, never a dead worker.
func (w *Worker) invoke(ctx *http.Context, h router.Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error("handler panic recovered", "panic", rec)
			ctx.ResetResponse()
			ctx.SetClose()
			ctx.Error(500, "Internal Server Error")
		}
	}()
	w.srv.pipeline.Execute(ctx, middleware.Func(h))
}

// failRequest replaces whatever is buffered with a minimal closing error
// response.
func (w *Worker) failRequest(slot int32, code int) {
	c := w.slab.Get(slot)
	out := http.AppendError(c.wbuf[:0], code)
	c.keepAlive = false
	c.closeAfter = true
	w.beginWrite(slot, int32(len(out)))
}

func (w *Worker) beginWrite(slot int32, n int32) {
	c := w.slab.Get(slot)
	c.writeLen = n
	c.writeN = 0
	c.state = StateWriting
	w.advanceWrite(slot)
}

// advanceWrite flushes as much of the response as the socket accepts. A
// short write keeps the state at Writing and re-arms for writability; the
// handler is never re-invoked. A completed flush either resets the slot for
// keep-alive reuse or tears it down.
func (w *Worker) advanceWrite(slot int32) {
	c := w.slab.Get(slot)
	for c.writeN < c.writeLen {
		n, err := unix.Write(int(c.fd), c.wbuf[c.writeN:c.writeLen])
		if err != nil {
			switch err {
			case unix.EAGAIN:
				w.poller.ModWrite(int(c.fd))
				return
			case unix.EINTR:
				continue
			default:
				w.teardown(slot)
				return
			}
		}
		c.writeN += int32(n)
		w.metrics.BytesSent.Add(uint64(n))
	}

	// Requests counts the same thing served does: cleanly completed
	// responses. Error responses that close the connection count in neither.
	if c.closeAfter || !c.keepAlive {
		if !c.closeAfter {
			c.served++
			w.metrics.Requests.Add(1)
		}
		w.teardown(slot)
		return
	}

	// Keep-alive reuse: slide any pipelined bytes to the front and go again,
	// preserving arrival order.
	c.served++
	w.metrics.Requests.Add(1)
	rem := c.readN - c.consumed
	if rem > 0 {
		copy(c.rbuf, c.rbuf[c.consumed:c.readN])
	}
	c.readN = rem
	c.consumed = 0
	c.writeN = 0
	c.writeLen = 0
	c.route = router.NoRoute
	w.slab.Request(slot).Reset()
	c.state = StateReading
	w.poller.ModRead(int(c.fd))
	if rem > 0 {
		w.processBuffer(slot)
	}
}

// teardown closes the socket and returns the slot to the free list. Every
// per-connection error funnels here; siblings are untouched.
//
// The receive queue is drained before close: closing with unread request
// bytes pending makes the kernel reset the connection, which would destroy a
// flushed error response still in flight to the peer.
func (w *Worker) teardown(slot int32) {
	c := w.slab.Get(slot)
	c.state = StateClosing
	fd := int(c.fd)
	w.poller.Remove(fd)
	unix.Shutdown(fd, unix.SHUT_WR)
	for {
		n, err := unix.Read(fd, c.rbuf)
		if n > 0 || err == unix.EINTR {
			continue
		}
		break
	}
	unix.Close(fd)
	delete(w.fdSlot, fd)
	w.slab.Free(slot)
	w.metrics.ActiveConns.Add(^uint64(0))
}

// sweepIdle closes connections idle past the configured timeout. Timestamps
// are epoch seconds and the sweep runs at most once per second.
func (w *Worker) sweepIdle(now int64) {
	idle := int64(w.srv.opts.IdleTimeout / time.Second)
	if idle <= 0 {
		return
	}
	for _, slot := range w.fdSlot {
		c := w.slab.Get(slot)
		if now-c.lastActive > idle {
			// Every occupied state is reclaimed, including a peer parked in
			// Writing that never drains its response; otherwise stalled
			// clients pin slots until the slab starves.
			w.teardown(slot)
		}
	}
}
