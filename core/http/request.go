package http

// MaxHeaders bounds the per-request header list. Requests carrying more
// headers are rejected as malformed rather than spilling to the heap.
const MaxHeaders = 32

// HeaderView is one header line. Key and Val point into the connection's
// read buffer and stay valid only for the current request.
type HeaderView struct {
	Key, Val []byte
}

// Request is a parsed HTTP/1.1 request. Every byte-slice field is a borrowed
// view into the connection's read buffer; nothing is copied out. Headers keep
// arrival order and duplicates.
type Request struct {
	Method []byte
	Path   []byte
	Query  []byte
	Proto  []byte

	Headers  [MaxHeaders]HeaderView
	NHeaders int

	Body []byte

	// Body framing, filled while headers are scanned.
	ContentLength int
	Chunked       bool

	connClose     bool
	connKeepAlive bool
}

// Header returns the value of the first header with the given name,
// matched case-insensitively, or nil.
func (r *Request) Header(name string) []byte {
	for i := 0; i < r.NHeaders; i++ {
		if asciiEqualFold(r.Headers[i].Key, name) {
			return r.Headers[i].Val
		}
	}
	return nil
}

// KeepAlive reports whether the connection may be reused after this request.
// HTTP/1.1 defaults to keep-alive unless "Connection: close" was sent;
// HTTP/1.0 requires an explicit "Connection: keep-alive".
func (r *Request) KeepAlive() bool {
	if r.connClose {
		return false
	}
	if string(r.Proto) == "HTTP/1.0" {
		return r.connKeepAlive
	}
	return true
}

// Reset clears the request for the next parse. Views are dropped, not zeroed.
func (r *Request) Reset() {
	r.Method = nil
	r.Path = nil
	r.Query = nil
	r.Proto = nil
	r.NHeaders = 0
	r.Body = nil
	r.ContentLength = 0
	r.Chunked = false
	r.connClose = false
	r.connKeepAlive = false
}

func (r *Request) addHeader(key, val []byte) bool {
	if r.NHeaders >= MaxHeaders {
		return false
	}
	r.Headers[r.NHeaders] = HeaderView{Key: key, Val: val}
	r.NHeaders++
	return true
}

// asciiEqualFold compares a byte slice against a string ignoring ASCII case,
// without converting either side.
func asciiEqualFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		cb, cs := b[i], s[i]
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if 'A' <= cs && cs <= 'Z' {
			cs += 'a' - 'A'
		}
		if cb != cs {
			return false
		}
	}
	return true
}
