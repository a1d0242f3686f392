package http

import (
	"strconv"

	json "github.com/goccy/go-json"
)

const maxParams = 8
const maxExtraHeaders = 8

// Context is the handler-facing view of one request on one connection. It is
// owned by the worker, rebound per request, and must never be retained past
// the handler's return. All request accessors return borrowed slices into the
// connection's read buffer; all response helpers render directly into the
// connection's fixed write buffer.
type Context struct {
	req  *Request
	out  []byte // the connection's write buffer, full length
	n    int    // bytes rendered so far
	date []byte // worker's cached HTTP date, DateLen bytes

	paramKeys  [maxParams]string
	paramVals  [maxParams][]byte
	paramCount int

	extraKeys  [maxExtraHeaders]string
	extraVals  [maxExtraHeaders]string
	extraCount int

	overflow  bool
	aborted   bool
	closeConn bool
	written   bool
}

// Bind attaches the context to a request and a write buffer. The worker calls
// this once per dispatched request.
func (c *Context) Bind(req *Request, out []byte, date []byte) {
	c.req = req
	c.out = out
	c.n = 0
	c.date = date
	c.paramCount = 0
	c.extraCount = 0
	c.overflow = false
	c.aborted = false
	c.closeConn = false
	c.written = false
}

// ResetResponse discards any partially rendered response, keeping the
// request binding. Used when a handler fault is replaced with a 500.
func (c *Context) ResetResponse() {
	c.n = 0
	c.extraCount = 0
	c.overflow = false
	c.written = false
}

// Request accessors.

func (c *Context) Method() []byte   { return c.req.Method }
func (c *Context) Path() []byte     { return c.req.Path }
func (c *Context) RawQuery() []byte { return c.req.Query }
func (c *Context) Body() []byte     { return c.req.Body }

// Header returns a request header value, or nil.
func (c *Context) Header(key string) []byte { return c.req.Header(key) }

// Query returns a single query-string value, scanning the raw query without
// allocating, or nil.
func (c *Context) Query(key string) []byte {
	q := c.req.Query
	for len(q) > 0 {
		pair := q
		for i := 0; i < len(q); i++ {
			if q[i] == '&' {
				pair = q[:i]
				break
			}
		}
		q = q[len(pair):]
		if len(q) > 0 {
			q = q[1:] // skip '&'
		}
		for i := 0; i < len(pair); i++ {
			if pair[i] == '=' {
				if string(pair[:i]) == key {
					return pair[i+1:]
				}
				break
			}
		}
	}
	return nil
}

// SetParam records a captured path parameter. Called by the router.
func (c *Context) SetParam(key string, val []byte) {
	if c.paramCount < maxParams {
		c.paramKeys[c.paramCount] = key
		c.paramVals[c.paramCount] = val
		c.paramCount++
	}
}

// Param returns a captured path parameter value, or nil.
func (c *Context) Param(key string) []byte {
	for i := 0; i < c.paramCount; i++ {
		if c.paramKeys[i] == key {
			return c.paramVals[i]
		}
	}
	return nil
}

// SetHeader queues an extra response header, written by the next response
// helper call. Limited to a fixed set; later entries are dropped.
func (c *Context) SetHeader(key, val string) {
	if c.extraCount < maxExtraHeaders {
		c.extraKeys[c.extraCount] = key
		c.extraVals[c.extraCount] = val
		c.extraCount++
	}
}

// Abort stops middleware pipeline processing after the current step.
func (c *Context) Abort()          { c.aborted = true }
func (c *Context) IsAborted() bool { return c.aborted }

// SetClose forces the connection to close after the response is flushed.
func (c *Context) SetClose()         { c.closeConn = true }
func (c *Context) ShouldClose() bool { return c.closeConn }

// Written reports how many response bytes were rendered.
func (c *Context) Written() int { return c.n }

// Overflowed reports that a response did not fit the fixed write buffer.
func (c *Context) Overflowed() bool { return c.overflow }

// Responded reports whether a response helper ran.
func (c *Context) Responded() bool { return c.written }

// Bind decodes a JSON request body into v.
func (c *Context) BindJSON(v any) error {
	return json.Unmarshal(c.req.Body, v)
}

// put appends into the fixed write buffer, flagging overflow instead of
// growing. After overflow the buffer contents are undefined and the worker
// replaces them with a minimal error response.
func (c *Context) put(p []byte) {
	if c.overflow || c.n+len(p) > len(c.out) {
		c.overflow = true
		return
	}
	copy(c.out[c.n:], p)
	c.n += len(p)
}

func (c *Context) putString(s string) {
	if c.overflow || c.n+len(s) > len(c.out) {
		c.overflow = true
		return
	}
	copy(c.out[c.n:], s)
	c.n += len(s)
}

func (c *Context) putInt(i int) {
	var tmp [20]byte
	c.put(appendInt(tmp[:0], i))
}

// head renders the status line and the fixed header block. Header order is
// deterministic so the fast path's precomputed bytes match the general path.
func (c *Context) head(code int, contentType string) {
	c.written = true
	c.putString("HTTP/1.1 ")
	c.putInt(code)
	c.putString(" ")
	c.putString(StatusText(code))
	c.putString("\r\nDate: ")
	c.put(c.date)
	c.putString("\r\nContent-Type: ")
	c.putString(contentType)
	c.putString("\r\n")
}

func (c *Context) extraHeaders() {
	for i := 0; i < c.extraCount; i++ {
		c.putString(c.extraKeys[i])
		c.putString(": ")
		c.putString(c.extraVals[i])
		c.putString("\r\n")
	}
}

// Data sends a response with an explicit content type.
func (c *Context) Data(code int, contentType string, body []byte) {
	c.head(code, contentType)
	c.putString("Content-Length: ")
	c.putInt(len(body))
	c.putString("\r\n")
	c.extraHeaders()
	c.putString("\r\n")
	c.put(body)
}

// String sends a plain text response.
func (c *Context) String(code int, s string) {
	c.head(code, "text/plain")
	c.putString("Content-Length: ")
	c.putInt(len(s))
	c.putString("\r\n")
	c.extraHeaders()
	c.putString("\r\n")
	c.putString(s)
}

// Bytes sends a raw bytes response.
func (c *Context) Bytes(code int, body []byte) {
	c.Data(code, "application/octet-stream", body)
}

// JSON sends a JSON response. Marshalling allocates; latency-critical
// endpoints should precompute bytes and register on the fast path instead.
func (c *Context) JSON(code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Error(500, "failed to marshal JSON")
		return
	}
	c.Data(code, "application/json", data)
}

// Error sends a plain text error response.
func (c *Context) Error(code int, message string) {
	c.String(code, message)
}

// ChunkWriter frames streamed response chunks into the write buffer.
type ChunkWriter struct {
	c *Context
}

// Write frames p as one chunk: <hex-length>\r\n<bytes>\r\n.
// Empty writes are skipped so a handler cannot accidentally terminate the
// stream early.
func (w *ChunkWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var tmp [16]byte
	w.c.put(strconv.AppendUint(tmp[:0], uint64(len(p)), 16))
	w.c.putString("\r\n")
	w.c.put(p)
	w.c.putString("\r\n")
	return len(p), nil
}

// Stream sends a chunked response produced by fn. Each ChunkWriter.Write
// becomes one chunk; the terminal 0-length chunk is appended when fn returns.
// The whole stream must still fit the fixed write buffer.
func (c *Context) Stream(code int, contentType string, fn func(w *ChunkWriter)) {
	c.head(code, contentType)
	c.putString("Transfer-Encoding: chunked\r\n")
	c.extraHeaders()
	c.putString("\r\n")
	fn(&ChunkWriter{c: c})
	c.putString("0\r\n\r\n")
}
