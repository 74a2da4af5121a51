package main

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"github.com/fluxorio/linehttpd/pkg/config"
	"github.com/fluxorio/linehttpd/pkg/core"
	metrics "github.com/fluxorio/linehttpd/pkg/observability/prometheus"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, addr func() string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := addr(); a != "" {
			return a
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s did not start listening in time", what)
	return ""
}

func send(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(out)
}

func TestServer_EndToEnd(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "www")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "index.html"), "<h1>hi</h1>")
	writeFile(t, filepath.Join(root, "404.html"), "missing")
	writeFile(t, filepath.Join(parent, "secret.txt"), "outside the root")

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Root = root
	cfg.Workers = 2
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = "127.0.0.1:0"

	reg := prometheus.NewRegistry()
	srv, err := newServer(cfg, core.NewNopLogger(), metrics.NewMetrics(reg), reg)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.run(ctx) }()

	addr := waitFor(t, "acceptor", srv.acceptor.ListeningAddr)
	scrapeAddr := waitFor(t, "metrics server", srv.scrape.Addr)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"file", "GET /index.html HTTP/1.1\r\n\r\n", "HTTP/1.1 200 OK\r\nContentLength: 11\r\n\r\n<h1>hi</h1>"},
		{"missing", "GET /nope.html HTTP/1.1\r\n\r\n", "HTTP/1.1 404 NOT FOUND\r\n\r\nmissing"},
		{"post", "POST /index.html HTTP/1.1\r\n\r\nbody", "HTTP/1.1 404 NOT FOUND\r\n\r\nmissing"},
		{"outside root", "GET /../secret.txt HTTP/1.1\r\n\r\n", "HTTP/1.1 404 NOT FOUND\r\n\r\nmissing"},
		{"malformed", "HELLO\r\n\r\n", "HTTP/1.1 404 NOT FOUND\r\n\r\nmissing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := send(t, addr, tt.raw); got != tt.want {
				t.Errorf("response = %q, want %q", got, tt.want)
			}
		})
	}

	status, body, err := fasthttp.GetTimeout(nil, "http://"+scrapeAddr+metrics.MetricsPath, 2*time.Second)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if status != fasthttp.StatusOK {
		t.Fatalf("scrape status = %d", status)
	}
	for _, want := range []string{
		`linehttpd_responses_total{status="200"} 1`,
		`linehttpd_responses_total{status="404"} 4`,
		`linehttpd_connections_accepted_total 5`,
		`linehttpd_workers_alive 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape missing %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
	if alive := srv.pool.Alive(); alive != 0 {
		t.Errorf("Alive() after shutdown = %d, want 0", alive)
	}
}

func TestNewServer_Errors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	writeFile(t, file, "x")

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing root", func(c *config.Config) { c.Root = filepath.Join(t.TempDir(), "gone") }},
		{"root is a file", func(c *config.Config) { c.Root = file }},
		{"bad policy", func(c *config.Config) { c.ParseErrorPolicy = "respond" }},
		{"bad exporter", func(c *config.Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "jaeger" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			reg := prometheus.NewRegistry()
			if _, err := newServer(cfg, core.NewNopLogger(), metrics.NewMetrics(reg), reg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
