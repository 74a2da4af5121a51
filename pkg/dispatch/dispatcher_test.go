package dispatch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/fluxorio/linehttpd/pkg/core"
	"github.com/fluxorio/linehttpd/pkg/request"
)

const notFoundBody = "<h1>Oops!</h1>\n"

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}
	return fs
}

func newTestDispatcher(t *testing.T, files map[string]string, opts ...Option) *Dispatcher {
	t.Helper()
	opts = append([]Option{WithLogger(core.NewNopLogger())}, opts...)
	return New(newTestFs(t, files), opts...)
}

func serve(t *testing.T, d *Dispatcher, raw string) (string, Status, error) {
	t.Helper()
	req, parseErr := request.Parse([]byte(raw))
	var buf bytes.Buffer
	status, err := d.Serve(&buf, req, parseErr)
	return buf.String(), status, err
}

func TestServe_GetExistingFile(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"index.html": "hi", DefaultNotFoundPage: notFoundBody})

	out, status, err := serve(t, d, "GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if status != StatusOK {
		t.Errorf("status = %v, want 200", status)
	}
	want := "HTTP/1.1 200 OK\r\nContentLength: 2\r\n\r\nhi"
	if out != want {
		t.Errorf("response = %q, want %q", out, want)
	}
}

func TestServe_GetNestedFile(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"docs/a.txt": "héllo", DefaultNotFoundPage: notFoundBody})

	out, _, err := serve(t, d, "GET /docs/a.txt HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	// Length is in bytes, not runes.
	want := "HTTP/1.1 200 OK\r\nContentLength: 6\r\n\r\nhéllo"
	if out != want {
		t.Errorf("response = %q, want %q", out, want)
	}
}

func TestServe_NotFoundCases(t *testing.T) {
	files := map[string]string{
		"index.html":        "hi",
		"binary.bin":        "\xff\xfe\x00",
		DefaultNotFoundPage: notFoundBody,
	}
	want404 := "HTTP/1.1 404 NOT FOUND\r\n\r\n" + notFoundBody

	tests := []struct {
		name string
		raw  string
	}{
		{"missing file", "GET /missing.html HTTP/1.1\r\n\r\n"},
		{"root path", "GET / HTTP/1.1\r\n\r\n"},
		{"non-text file", "GET /binary.bin HTTP/1.1\r\n\r\n"},
		{"post with body", "POST /anything HTTP/1.1\r\n\r\nbody-data\r\n"},
		{"post to existing file", "POST /index.html HTTP/1.1\r\n\r\n"},
		{"put", "PUT /index.html HTTP/1.1\r\n\r\nnew content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(t, files)
			out, status, err := serve(t, d, tt.raw)
			if err != nil {
				t.Fatalf("Serve() error = %v", err)
			}
			if status != StatusNotFound {
				t.Errorf("status = %v, want 404", status)
			}
			if out != want404 {
				t.Errorf("response = %q, want %q", out, want404)
			}
		})
	}
}

func TestServe_DirectoryIsNotFound(t *testing.T) {
	fs := newTestFs(t, map[string]string{DefaultNotFoundPage: notFoundBody})
	if err := fs.MkdirAll("static", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	d := New(fs, WithLogger(core.NewNopLogger()))

	req, err := request.Parse([]byte("GET /static HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	resp, err := d.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resp.Status != StatusNotFound {
		t.Errorf("status = %v, want 404", resp.Status)
	}
}

func TestServe_ParseErrorDropPolicy(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{DefaultNotFoundPage: notFoundBody},
		WithParseErrorPolicy(DropOnParseError))

	out, status, err := serve(t, d, "BREW /pot HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if status != StatusNone || out != "" {
		t.Errorf("Serve() wrote %q with status %v, want nothing", out, status)
	}
}

func TestServe_ParseErrorIsNotFoundByDefault(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{DefaultNotFoundPage: notFoundBody})

	out, status, err := serve(t, d, "GET /only-two-tokens\r\n\r\n")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if status != StatusNotFound || out != "HTTP/1.1 404 NOT FOUND\r\n\r\n"+notFoundBody {
		t.Errorf("Serve() = %q (%v), want 404 response", out, status)
	}
}

func TestServe_MissingNotFoundPageFailsConnection(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"index.html": "hi"})

	out, status, err := serve(t, d, "GET /missing.html HTTP/1.1\r\n\r\n")
	if !errors.Is(err, ErrNotFoundPage) {
		t.Fatalf("Serve() error = %v, want ErrNotFoundPage", err)
	}
	if status != StatusNone || out != "" {
		t.Errorf("Serve() wrote %q, want nothing", out)
	}

	// The 200 path does not need the not-found page.
	if _, status, err := serve(t, d, "GET /index.html HTTP/1.1\r\n\r\n"); err != nil || status != StatusOK {
		t.Errorf("Serve() = %v, %v, want 200", status, err)
	}
}

func TestServe_CustomNotFoundPage(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"errors/missing.txt": "nope"},
		WithNotFoundPage("errors/missing.txt"))

	out, _, err := serve(t, d, "PUT /x HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if out != "HTTP/1.1 404 NOT FOUND\r\n\r\nnope" {
		t.Errorf("response = %q", out)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestServe_WriteFaultIsReported(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"index.html": "hi"})
	req, _ := request.Parse([]byte("GET /index.html HTTP/1.1\r\n\r\n"))

	status, err := d.Serve(failingWriter{}, req, nil)
	if err == nil {
		t.Fatal("Serve() should report the write fault")
	}
	if status != StatusOK {
		t.Errorf("status = %v, want the attempted 200", status)
	}
}

func TestNew_NilFsPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil) should panic")
		}
	}()
	New(nil)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ParseErrorPolicy
		wantErr bool
	}{
		{"", NotFoundOnParseError, false},
		{"drop", DropOnParseError, false},
		{"not_found", NotFoundOnParseError, false},
		{"404", NotFoundOnParseError, false},
		{"respond", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestResponse_Bytes(t *testing.T) {
	if got := string(Response{Status: StatusOK, Body: ""}.Bytes()); got != "HTTP/1.1 200 OK\r\nContentLength: 0\r\n\r\n" {
		t.Errorf("empty 200 = %q", got)
	}
	if got := (Response{Status: StatusNone}).Bytes(); got != nil {
		t.Errorf("StatusNone Bytes() = %q, want nil", got)
	}
	if StatusNone.String() != "none" || StatusNotFound.String() != "404" {
		t.Errorf("Status.String() = %q, %q", StatusNone.String(), StatusNotFound.String())
	}
}
