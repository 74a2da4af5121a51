// Command linehttpd-bench drives a running linehttpd with concurrent
// one-shot connections and prints a summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fluxorio/linehttpd/pkg/core"
)

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:7878", "server address")
		path    = flag.String("path", "/", "URI to GET")
		n       = flag.Int("n", 1000, "total connections")
		c       = flag.Int("c", 32, "concurrent connections")
		timeout = flag.Duration("timeout", 5*time.Second, "per-connection timeout")
		level   = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, err := runLoad(ctx, loadOptions{
		Addr:        *addr,
		Request:     fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\n\r\n", *path, *addr),
		Connections: *n,
		Concurrency: *c,
		Timeout:     *timeout,
		Logger:      core.NewLoggerAtLevel(os.Stderr, *level),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "linehttpd-bench: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(r)
}
