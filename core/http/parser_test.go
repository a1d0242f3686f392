package http

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseSimpleRequest(t *testing.T) {
	raw := []byte("GET /users/42?debug=1 HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n")
	var req Request

	consumed, st, err := Parse(raw, &req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != StatusComplete {
		t.Fatalf("status = %v, want complete", st)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if string(req.Method) != "GET" {
		t.Errorf("method = %q", req.Method)
	}
	if string(req.Path) != "/users/42" {
		t.Errorf("path = %q", req.Path)
	}
	if string(req.Query) != "debug=1" {
		t.Errorf("query = %q", req.Query)
	}
	if string(req.Proto) != "HTTP/1.1" {
		t.Errorf("proto = %q", req.Proto)
	}
	if req.NHeaders != 2 {
		t.Errorf("headers = %d, want 2", req.NHeaders)
	}
	if string(req.Header("host")) != "example.com" {
		t.Errorf("Header(host) = %q", req.Header("host"))
	}
}

func TestParseIncremental(t *testing.T) {
	raw := []byte("POST /data HTTP/1.1\r\nHost: x\r\nContent-Length: 4\r\n\r\nabcd")
	var req Request

	for i := 1; i < len(raw); i++ {
		_, st, err := Parse(raw[:i], &req)
		if st == StatusComplete {
			t.Fatalf("complete after %d of %d bytes", i, len(raw))
		}
		if st == StatusMalformed {
			t.Fatalf("malformed after %d bytes: %v", i, err)
		}
	}

	consumed, st, err := Parse(raw, &req)
	if err != nil || st != StatusComplete {
		t.Fatalf("final parse: status=%v err=%v", st, err)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if string(req.Body) != "abcd" {
		t.Errorf("body = %q", req.Body)
	}
}

func TestParseContentLengthBody(t *testing.T) {
	raw := []byte("POST /up HTTP/1.1\r\nContent-Length: 5\r\n\r\nhelloGET /next")
	var req Request

	consumed, st, err := Parse(raw, &req)
	if err != nil || st != StatusComplete {
		t.Fatalf("status=%v err=%v", st, err)
	}
	if string(req.Body) != "hello" {
		t.Errorf("body = %q", req.Body)
	}
	if string(raw[consumed:]) != "GET /next" {
		t.Errorf("pipelined remainder = %q", raw[consumed:])
	}
}

func TestParseChunkedBody(t *testing.T) {
	raw := []byte("POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")
	var req Request

	consumed, st, err := Parse(raw, &req)
	if err != nil || st != StatusComplete {
		t.Fatalf("status=%v err=%v", st, err)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if string(req.Body) != "hello world" {
		t.Errorf("body = %q, want %q", req.Body, "hello world")
	}
}

func TestParseChunkedIncomplete(t *testing.T) {
	raw := []byte("POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhel")
	var req Request

	_, st, err := Parse(raw, &req)
	if st != StatusIncomplete || err != nil {
		t.Errorf("status=%v err=%v, want incomplete", st, err)
	}
}

func TestParseChunkedTrailers(t *testing.T) {
	raw := []byte("POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n0\r\nX-Sum: 9\r\n\r\n")
	var req Request

	_, st, err := Parse(raw, &req)
	if err != nil || st != StatusComplete {
		t.Fatalf("status=%v err=%v", st, err)
	}
	if string(req.Body) != "abc" {
		t.Errorf("body = %q", req.Body)
	}
	if string(req.Header("x-sum")) != "9" {
		t.Errorf("trailer = %q", req.Header("x-sum"))
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{"bare LF line ending", "GET / HTTP/1.1\n\r\n", ErrInvalidRequest},
		{"missing target", "GET  HTTP/1.1\r\n\r\n", ErrInvalidRequest},
		{"no version", "GET /\r\n\r\n", ErrInvalidRequest},
		{"bad version prefix", "GET / HTPT/1.1\r\n\r\n", ErrInvalidRequest},
		{"header without colon", "GET / HTTP/1.1\r\nBadHeader\r\n\r\n", ErrInvalidRequest},
		{"negative content length", "GET / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", ErrInvalidLength},
		{"non-numeric content length", "GET / HTTP/1.1\r\nContent-Length: abc\r\n\r\n", ErrInvalidLength},
		{"overflowing content length", "GET / HTTP/1.1\r\nContent-Length: 99999999999999999999\r\n\r\n", ErrInvalidLength},
		{"bad chunk size", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n\r\n", ErrInvalidChunk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			_, st, err := Parse([]byte(tt.raw), &req)
			if st != StatusMalformed {
				t.Fatalf("status = %v, want malformed", st)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestParseHeaderLimit(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i <= MaxHeaders; i++ {
		buf.WriteString("X-Filler: v\r\n")
	}
	buf.WriteString("\r\n")

	var req Request
	_, st, err := Parse(buf.Bytes(), &req)
	if st != StatusMalformed || !errors.Is(err, ErrHeaderLimit) {
		t.Errorf("status=%v err=%v, want malformed ErrHeaderLimit", st, err)
	}
}

func TestKeepAlive(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"1.1 default", "GET / HTTP/1.1\r\n\r\n", true},
		{"1.1 close", "GET / HTTP/1.1\r\nConnection: close\r\n\r\n", false},
		{"1.0 default", "GET / HTTP/1.0\r\n\r\n", false},
		{"1.0 keep-alive", "GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", true},
		{"1.1 close in token list", "GET / HTTP/1.1\r\nConnection: close, te\r\n\r\n", false},
		{"1.0 keep-alive in token list", "GET / HTTP/1.0\r\nConnection: Keep-Alive, upgrade\r\n\r\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			_, st, err := Parse([]byte(tt.raw), &req)
			if err != nil || st != StatusComplete {
				t.Fatalf("status=%v err=%v", st, err)
			}
			if got := req.KeepAlive(); got != tt.want {
				t.Errorf("KeepAlive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeaderCaseInsensitive(t *testing.T) {
	raw := []byte("GET / HTTP/1.1\r\nX-Custom-Header: value\r\n\r\n")
	var req Request
	if _, st, _ := Parse(raw, &req); st != StatusComplete {
		t.Fatal("parse failed")
	}
	if string(req.Header("x-custom-header")) != "value" {
		t.Errorf("lowercase lookup = %q", req.Header("x-custom-header"))
	}
	if string(req.Header("X-CUSTOM-HEADER")) != "value" {
		t.Errorf("uppercase lookup = %q", req.Header("X-CUSTOM-HEADER"))
	}
	if req.Header("x-missing") != nil {
		t.Error("missing header should be nil")
	}
}

func BenchmarkParseSimple(b *testing.B) {
	raw := []byte("GET /users/42?debug=1 HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\nUser-Agent: bench\r\n\r\n")
	var req Request
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Parse(raw, &req)
	}
}

func BenchmarkParseWithBody(b *testing.B) {
	raw := []byte("POST /data HTTP/1.1\r\nHost: x\r\nContent-Length: 11\r\n\r\nhello world")
	var req Request
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Parse(raw, &req)
	}
}
