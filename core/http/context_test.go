package http

import (
	"bytes"
	"testing"
)

func bindTestContext(buf []byte) *Context {
	var ctx Context
	ctx.Bind(nil, buf, DatePlaceholder)
	return &ctx
}

func TestContextString(t *testing.T) {
	buf := make([]byte, 512)
	ctx := bindTestContext(buf)
	ctx.String(200, "hello")

	want := "HTTP/1.1 200 OK\r\nDate: " + string(DatePlaceholder) +
		"\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello"
	if got := string(buf[:ctx.Written()]); got != want {
		t.Errorf("response = %q, want %q", got, want)
	}
	if !ctx.Responded() {
		t.Error("Responded() = false after String")
	}
}

func TestContextDataWithExtraHeaders(t *testing.T) {
	buf := make([]byte, 512)
	ctx := bindTestContext(buf)
	ctx.SetHeader("X-Request-Id", "abc123")
	ctx.Data(201, "application/json", []byte(`{"id":1}`))

	got := string(buf[:ctx.Written()])
	if !bytes.Contains(buf[:ctx.Written()], []byte("HTTP/1.1 201 Created\r\n")) {
		t.Errorf("missing status line: %q", got)
	}
	if !bytes.Contains(buf[:ctx.Written()], []byte("X-Request-Id: abc123\r\n")) {
		t.Errorf("missing extra header: %q", got)
	}
	if !bytes.HasSuffix(buf[:ctx.Written()], []byte("\r\n\r\n{\"id\":1}")) {
		t.Errorf("bad body framing: %q", got)
	}
}

func TestContextJSON(t *testing.T) {
	buf := make([]byte, 512)
	ctx := bindTestContext(buf)
	ctx.JSON(200, map[string]string{"status": "ok"})

	got := buf[:ctx.Written()]
	if !bytes.Contains(got, []byte("Content-Type: application/json\r\n")) {
		t.Errorf("missing content type: %q", got)
	}
	if !bytes.HasSuffix(got, []byte(`{"status":"ok"}`)) {
		t.Errorf("bad body: %q", got)
	}
}

func TestContextStream(t *testing.T) {
	buf := make([]byte, 512)
	ctx := bindTestContext(buf)
	ctx.Stream(200, "text/plain", func(w *ChunkWriter) {
		w.Write([]byte("chunk1"))
		w.Write([]byte("chunk2"))
		w.Write(nil) // must not terminate the stream
	})

	got := buf[:ctx.Written()]
	if !bytes.Contains(got, []byte("Transfer-Encoding: chunked\r\n")) {
		t.Errorf("missing chunked header: %q", got)
	}
	if !bytes.HasSuffix(got, []byte("6\r\nchunk1\r\n6\r\nchunk2\r\n0\r\n\r\n")) {
		t.Errorf("bad chunk framing: %q", got)
	}
}

func TestContextOverflow(t *testing.T) {
	buf := make([]byte, 64)
	ctx := bindTestContext(buf)
	ctx.Data(200, "text/plain", bytes.Repeat([]byte("x"), 128))

	if !ctx.Overflowed() {
		t.Error("Overflowed() = false for oversized response")
	}
	if ctx.Written() > len(buf) {
		t.Errorf("Written() = %d exceeds buffer %d", ctx.Written(), len(buf))
	}
}

func TestContextResetResponse(t *testing.T) {
	buf := make([]byte, 512)
	ctx := bindTestContext(buf)
	ctx.String(200, "partial")
	ctx.ResetResponse()

	if ctx.Written() != 0 || ctx.Responded() {
		t.Errorf("after reset: written=%d responded=%v", ctx.Written(), ctx.Responded())
	}
	ctx.String(500, "replaced")
	if !bytes.HasPrefix(buf[:ctx.Written()], []byte("HTTP/1.1 500 ")) {
		t.Errorf("replacement response = %q", buf[:ctx.Written()])
	}
}

func TestContextQuery(t *testing.T) {
	req := &Request{Query: []byte("name=bob&age=30&flag")}
	var ctx Context
	ctx.Bind(req, nil, nil)

	if got := string(ctx.Query("name")); got != "bob" {
		t.Errorf("Query(name) = %q", got)
	}
	if got := string(ctx.Query("age")); got != "30" {
		t.Errorf("Query(age) = %q", got)
	}
	if ctx.Query("missing") != nil {
		t.Error("Query(missing) should be nil")
	}
}

func TestContextParams(t *testing.T) {
	var ctx Context
	ctx.Bind(nil, nil, nil)
	ctx.SetParam("id", []byte("42"))
	ctx.SetParam("name", []byte("bob"))

	if got := string(ctx.Param("id")); got != "42" {
		t.Errorf("Param(id) = %q", got)
	}
	if ctx.Param("other") != nil {
		t.Error("Param(other) should be nil")
	}

	// Rebind drops captured params.
	ctx.Bind(nil, nil, nil)
	if ctx.Param("id") != nil {
		t.Error("params survived rebind")
	}
}

func TestAppendError(t *testing.T) {
	out := AppendError(make([]byte, 0, 128), 413)
	want := "HTTP/1.1 413 Payload Too Large\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
	if string(out) != want {
		t.Errorf("AppendError = %q, want %q", out, want)
	}
}

func TestBuildStatic(t *testing.T) {
	resp, off := BuildStatic(200, "text/plain", []byte("ok"))
	if off < 0 {
		t.Fatal("no date offset")
	}
	if got := string(resp[off : off+DateLen]); got != string(DatePlaceholder) {
		t.Errorf("date at offset = %q", got)
	}

	buf := make([]byte, 512)
	ctx := bindTestContext(buf)
	ctx.Data(200, "text/plain", []byte("ok"))
	if !bytes.Equal(resp, buf[:ctx.Written()]) {
		t.Errorf("precomputed = %q, handler path = %q", resp, buf[:ctx.Written()])
	}
}

func BenchmarkContextString(b *testing.B) {
	buf := make([]byte, 512)
	var ctx Context
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx.Bind(nil, buf, DatePlaceholder)
		ctx.String(200, "Hello, World!")
	}
}
