package core

// State is the lifecycle position of one slab slot. Exactly one state holds
// at any instant; the worker advances it one step per readiness event.
type State uint8

const (
	StateFree State = iota
	StateAccepted
	StateReading
	StateParsing
	StateRouting
	StateHandling
	StateWriting
	StateClosing
)

var stateNames = [...]string{
	"free", "accepted", "reading", "parsing", "routing", "handling", "writing", "closing",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// CacheLine is the assumed coherence granularity. Conn is padded to a
// multiple of it so adjacent slots never share a line.
const CacheLine = 64

// Conn is one slab slot. The record keeps the descriptor and the free-list
// link in separate fields (state decides which is meaningful) so a stale
// read can never confuse an fd with a link. rbuf and wbuf are fixed-capacity
// windows into the slab's arena; cursors stay within them by construction.
//
// Field order packs the struct to exactly 128 bytes; the trailing pad keeps
// it a cache-line multiple (asserted in tests).
type Conn struct {
	fd         int32
	nextFree   int32
	state      State
	keepAlive  bool
	closeAfter bool
	_          [1]byte
	served     uint32
	readN      int32 // valid bytes in rbuf
	writeN     int32 // bytes of wbuf flushed so far
	writeLen   int32 // total response bytes in wbuf
	consumed   int32 // framing length of the request being answered
	route      int32 // resolved route index, valid Routing through Writing
	_          [4]byte
	lastActive int64 // epoch seconds, for the idle sweep
	rbuf       []byte
	wbuf       []byte
	_          [32]byte
}

// FD returns the socket descriptor; meaningful only while the slot is
// occupied.
func (c *Conn) FD() int { return int(c.fd) }

// State returns the current lifecycle state.
func (c *Conn) State() State { return c.state }

// Served returns how many requests completed on this physical connection.
func (c *Conn) Served() uint32 { return c.served }
