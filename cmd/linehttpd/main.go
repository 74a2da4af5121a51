// Command linehttpd serves files from a directory over a line-oriented
// request protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/fluxorio/linehttpd/pkg/config"
	"github.com/fluxorio/linehttpd/pkg/core"
	metrics "github.com/fluxorio/linehttpd/pkg/observability/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "linehttpd: %v\n", err)
		os.Exit(2)
	}
	logger := core.NewLoggerAtLevel(os.Stderr, cfg.LogLevel)

	srv, err := newServer(cfg, logger, metrics.GetMetrics(), metrics.DefaultRegistry)
	if err != nil {
		logger.Errorf("startup failed: %v", err)
		os.Exit(1)
	}
	otel.SetTracerProvider(srv.tracer.TracerProvider())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.run(ctx); err != nil {
		logger.Errorf("server: %v", err)
		os.Exit(1)
	}
}
