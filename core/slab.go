package core

import (
	"errors"

	"github.com/searchktools/slab-server/core/http"
	"github.com/searchktools/slab-server/core/router"
)

// ErrSlabFull is returned when every slot is occupied. The caller closes the
// incoming socket without admitting it: backpressure, not queueing.
var ErrSlabFull = errors.New("connection slab full")

// MinBufferSize is the smallest usable per-connection buffer. Error
// responses must always fit, so configuration clamps below this.
const MinBufferSize = 256

// Slab is a worker's fixed pool of connection records. All buffers live in
// one contiguous arena sized at startup; allocation and free are O(1) via a
// free list threaded through unused slots. The slab never grows.
//
// Parsed requests live in a parallel slice rather than inside Conn, keeping
// the record itself a small fixed shape.
type Slab struct {
	conns    []Conn
	reqs     []http.Request
	arena    []byte
	freeHead int32
	inUse    int
}

// NewSlab allocates a slab with the given slot count and per-direction
// buffer capacity. All slots start Free, chained into the free list.
func NewSlab(capacity, bufSize int) *Slab {
	if capacity < 1 {
		panic("slab: capacity must be positive")
	}
	if bufSize < MinBufferSize {
		panic("slab: buffer size below minimum")
	}
	s := &Slab{
		conns: make([]Conn, capacity),
		reqs:  make([]http.Request, capacity),
		arena: make([]byte, 2*bufSize*capacity),
	}
	for i := range s.conns {
		c := &s.conns[i]
		c.fd = -1
		c.state = StateFree
		c.nextFree = int32(i + 1)
		c.route = router.NoRoute
		off := 2 * bufSize * i
		c.rbuf = s.arena[off : off+bufSize : off+bufSize]
		c.wbuf = s.arena[off+bufSize : off+2*bufSize : off+2*bufSize]
	}
	s.conns[capacity-1].nextFree = -1
	return s
}

// Alloc pops a free slot for fd and moves it to Accepted with fresh cursors.
func (s *Slab) Alloc(fd int) (int32, error) {
	if s.freeHead < 0 {
		return -1, ErrSlabFull
	}
	i := s.freeHead
	c := &s.conns[i]
	s.freeHead = c.nextFree
	c.nextFree = -1
	c.fd = int32(fd)
	c.state = StateAccepted
	c.keepAlive = false
	c.closeAfter = false
	c.served = 0
	c.readN = 0
	c.writeN = 0
	c.writeLen = 0
	c.consumed = 0
	c.route = router.NoRoute
	s.inUse++
	return i, nil
}

// Free resets a slot and pushes it back on the free list. The caller has
// already closed the socket.
func (s *Slab) Free(i int32) {
	c := &s.conns[i]
	c.fd = -1
	c.state = StateFree
	c.keepAlive = false
	c.closeAfter = false
	c.served = 0
	c.readN = 0
	c.writeN = 0
	c.writeLen = 0
	c.consumed = 0
	c.route = router.NoRoute
	c.lastActive = 0
	s.reqs[i].Reset()
	c.nextFree = s.freeHead
	s.freeHead = i
	s.inUse--
}

// Get returns the record at slot i.
func (s *Slab) Get(i int32) *Conn { return &s.conns[i] }

// Request returns the parse target paired with slot i.
func (s *Slab) Request(i int32) *http.Request { return &s.reqs[i] }

// InUse returns the number of occupied slots.
func (s *Slab) InUse() int { return s.inUse }

// Cap returns the slot count.
func (s *Slab) Cap() int { return len(s.conns) }
