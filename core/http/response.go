package http

import "bytes"

// DateLen is the length of an RFC 1123 GMT date, e.g.
// "Mon, 02 Jan 2006 15:04:05 GMT". The fast path patches exactly this many
// bytes in a precomputed response.
const DateLen = 29

// TimeFormat is the HTTP date layout.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// DatePlaceholder fills the Date header of precomputed responses until a
// worker patches in its cached date at send time.
var DatePlaceholder = []byte("Thu, 01 Jan 1970 00:00:00 GMT")

// Flat table instead of a map: codes are fixed and lookup stays branch-free.
var statusTable = [512]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	411: "Length Required",
	413: "Payload Too Large",
	414: "URI Too Long",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for a status code.
func StatusText(code int) string {
	if code >= 0 && code < len(statusTable) {
		if s := statusTable[code]; s != "" {
			return s
		}
	}
	return "Internal Server Error"
}

// appendInt writes a non-negative integer without allocating.
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}
	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}
	for n > 0 {
		n--
		b = append(b, digits[n])
	}
	return b
}

// AppendError renders a minimal closing error response into dst and returns
// the new length. dst must start at length zero with fixed capacity; the
// caller guarantees the capacity fits (config enforces a floor on buffer
// size). Used for parse failures and handler faults where the general
// response path is unavailable.
func AppendError(dst []byte, code int) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = appendInt(dst, code)
	dst = append(dst, ' ')
	dst = append(dst, StatusText(code)...)
	dst = append(dst, "\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"...)
	return dst
}

// BuildStatic renders a complete response once, through the same Context
// path a handler would use, so a fast-path entry is byte-identical to the
// general path's output. It returns the rendered bytes and the offset of the
// Date header value for send-time patching.
func BuildStatic(code int, contentType string, body []byte) ([]byte, int) {
	buf := make([]byte, len(body)+512)
	var ctx Context
	ctx.Bind(nil, buf, DatePlaceholder)
	ctx.Data(code, contentType, body)

	resp := make([]byte, ctx.n)
	copy(resp, buf[:ctx.n])

	off := bytes.Index(resp, []byte("\r\nDate: "))
	if off == -1 {
		return resp, -1
	}
	return resp, off + len("\r\nDate: ")
}
