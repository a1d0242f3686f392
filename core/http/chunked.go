package http

import "bytes"

// parseChunked recognizes a chunked request body starting at buf[bodyStart:].
//
// First pass walks the chunk framing without moving anything, so an
// incomplete body leaves the buffer untouched for the next read. Only once
// the terminal zero chunk (and any trailer section) is present does the
// second pass compact the chunk payloads down over their framing, yielding a
// contiguous borrowed body view at buf[bodyStart:].
func parseChunked(buf []byte, bodyStart int, req *Request) (int, Status, error) {
	pos := bodyStart
	total := 0
	for {
		size, dataStart, st, err := chunkHeader(buf, pos)
		if st != StatusComplete {
			return 0, st, err
		}
		if size == 0 {
			end, st, err := chunkTrailers(buf, dataStart, req)
			if st != StatusComplete {
				return 0, st, err
			}
			compactChunks(buf, bodyStart)
			req.Body = buf[bodyStart : bodyStart+total]
			return end, StatusComplete, nil
		}
		if dataStart+size+2 > len(buf) {
			return 0, StatusIncomplete, nil
		}
		if buf[dataStart+size] != '\r' || buf[dataStart+size+1] != '\n' {
			return 0, StatusMalformed, ErrInvalidChunk
		}
		total += size
		pos = dataStart + size + 2
	}
}

// chunkHeader parses one "<hex-size>[;ext]\r\n" line at buf[pos:].
func chunkHeader(buf []byte, pos int) (size, dataStart int, st Status, err error) {
	idx := bytes.IndexByte(buf[pos:], '\n')
	if idx == -1 {
		return 0, 0, StatusIncomplete, nil
	}
	eol := pos + idx
	if eol == pos || buf[eol-1] != '\r' {
		return 0, 0, StatusMalformed, ErrInvalidChunk
	}
	line := buf[pos : eol-1]
	if semi := bytes.IndexByte(line, ';'); semi != -1 {
		line = line[:semi] // chunk extensions are ignored
	}
	size, ok := parseHex(line)
	if !ok {
		return 0, 0, StatusMalformed, ErrInvalidChunk
	}
	return size, eol + 1, StatusComplete, nil
}

// chunkTrailers consumes the optional trailer section after the zero chunk,
// appending trailer headers to the request's header list, and returns the
// offset just past the final CRLF.
func chunkTrailers(buf []byte, pos int, req *Request) (int, Status, error) {
	for {
		idx := bytes.IndexByte(buf[pos:], '\n')
		if idx == -1 {
			return 0, StatusIncomplete, nil
		}
		eol := pos + idx
		if eol == pos || buf[eol-1] != '\r' {
			return 0, StatusMalformed, ErrInvalidChunk
		}
		line := buf[pos : eol-1]
		pos = eol + 1
		if len(line) == 0 {
			return pos, StatusComplete, nil
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return 0, StatusMalformed, ErrInvalidChunk
		}
		if !req.addHeader(line[:colon], trimOWS(line[colon+1:])) {
			return 0, StatusMalformed, ErrHeaderLimit
		}
	}
}

// compactChunks re-walks verified chunk framing and slides each payload down
// so the decoded body becomes contiguous at buf[bodyStart:]. Copies always
// move bytes toward lower offsets, so overlapping copy is safe.
func compactChunks(buf []byte, bodyStart int) {
	read := bodyStart
	write := bodyStart
	for {
		size, dataStart, _, _ := chunkHeader(buf, read)
		if size == 0 {
			return
		}
		copy(buf[write:], buf[dataStart:dataStart+size])
		write += size
		read = dataStart + size + 2
	}
}

func parseHex(b []byte) (int, bool) {
	if len(b) == 0 || len(b) > 8 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'a' && c <= 'f':
			n |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		default:
			return 0, false
		}
	}
	return n, true
}
