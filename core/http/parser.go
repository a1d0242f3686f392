package http

import (
	"bytes"
	"errors"
)

// Status is the outcome of a parse attempt over the bytes read so far.
type Status uint8

const (
	// StatusIncomplete means more bytes are needed; nothing was consumed.
	StatusIncomplete Status = iota
	// StatusComplete means a full request was recognized.
	StatusComplete
	// StatusMalformed means the bytes can never form a valid request.
	StatusMalformed
)

var (
	ErrInvalidRequest = errors.New("invalid HTTP request")
	ErrHeaderLimit    = errors.New("too many headers")
	ErrInvalidLength  = errors.New("invalid Content-Length")
	ErrInvalidChunk   = errors.New("invalid chunk framing")
)

// Parse attempts to recognize one complete HTTP/1.1 request in buf, which
// holds exactly the bytes received so far. It is a full re-scan on every
// call: feeding the same request byte by byte yields StatusIncomplete until
// the final byte arrives, then the same view as a single-shot parse.
//
// On StatusComplete, consumed is the length of the request's framing in buf
// (pipelined bytes follow at buf[consumed:]) and every view in req borrows
// from buf. A chunked body is de-chunked in place, so buf[:consumed] must not
// be re-parsed afterwards. The error is non-nil only for StatusMalformed.
func Parse(buf []byte, req *Request) (consumed int, st Status, err error) {
	req.Reset()

	// Request line: METHOD SP TARGET SP VERSION CRLF
	lineEnd := bytes.IndexByte(buf, '\n')
	if lineEnd == -1 {
		return 0, StatusIncomplete, nil
	}
	if lineEnd == 0 || buf[lineEnd-1] != '\r' {
		return 0, StatusMalformed, ErrInvalidRequest
	}
	line := buf[:lineEnd-1]

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return 0, StatusMalformed, ErrInvalidRequest
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		return 0, StatusMalformed, ErrInvalidRequest
	}
	sp2 += sp1 + 1

	req.Method = line[:sp1]
	target := line[sp1+1 : sp2]
	req.Proto = line[sp2+1:]
	if len(target) == 0 || !bytes.HasPrefix(req.Proto, []byte("HTTP/")) {
		return 0, StatusMalformed, ErrInvalidRequest
	}

	if q := bytes.IndexByte(target, '?'); q != -1 {
		req.Path = target[:q]
		req.Query = target[q+1:]
	} else {
		req.Path = target
	}

	// Header lines until the empty CRLF line.
	pos := lineEnd + 1
	for {
		idx := bytes.IndexByte(buf[pos:], '\n')
		if idx == -1 {
			return 0, StatusIncomplete, nil
		}
		eol := pos + idx
		if eol == pos || buf[eol-1] != '\r' {
			return 0, StatusMalformed, ErrInvalidRequest
		}
		line := buf[pos : eol-1]
		pos = eol + 1
		if len(line) == 0 {
			break // end of headers
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return 0, StatusMalformed, ErrInvalidRequest
		}
		key := line[:colon]
		val := trimOWS(line[colon+1:])
		if !req.addHeader(key, val) {
			return 0, StatusMalformed, ErrHeaderLimit
		}

		switch {
		case asciiEqualFold(key, "content-length"):
			n, ok := parseDecimal(val)
			if !ok {
				return 0, StatusMalformed, ErrInvalidLength
			}
			req.ContentLength = n
		case asciiEqualFold(key, "transfer-encoding"):
			if bytes.Contains(bytes.ToLower(val), []byte("chunked")) {
				req.Chunked = true
			}
		case asciiEqualFold(key, "connection"):
			if hasToken(val, "close") {
				req.connClose = true
			}
			if hasToken(val, "keep-alive") {
				req.connKeepAlive = true
			}
		}
	}

	// Body: chunked coding wins over Content-Length.
	if req.Chunked {
		return parseChunked(buf, pos, req)
	}
	if cl := req.ContentLength; cl > 0 {
		if pos+cl > len(buf) {
			return 0, StatusIncomplete, nil
		}
		req.Body = buf[pos : pos+cl]
		pos += cl
	}
	return pos, StatusComplete, nil
}

// trimOWS strips optional whitespace around a header value.
func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

// hasToken reports whether a comma-separated header value contains token,
// matched case-insensitively with surrounding whitespace ignored.
func hasToken(val []byte, token string) bool {
	for len(val) > 0 {
		part := val
		if comma := bytes.IndexByte(val, ','); comma != -1 {
			part = val[:comma]
			val = val[comma+1:]
		} else {
			val = nil
		}
		if asciiEqualFold(trimOWS(part), token) {
			return true
		}
	}
	return false
}

// parseDecimal caps input at 18 digits so the result can never overflow and
// masquerade as a small or absent body.
func parseDecimal(b []byte) (int, bool) {
	if len(b) == 0 || len(b) > 18 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
