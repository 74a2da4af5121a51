package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/fluxorio/linehttpd/pkg/config"
	"github.com/fluxorio/linehttpd/pkg/core"
	"github.com/fluxorio/linehttpd/pkg/core/concurrency"
	"github.com/fluxorio/linehttpd/pkg/dispatch"
	metrics "github.com/fluxorio/linehttpd/pkg/observability/prometheus"
	"github.com/fluxorio/linehttpd/pkg/observability/tracing"
	"github.com/fluxorio/linehttpd/pkg/tcp"
)

const shutdownTimeout = 10 * time.Second

// server wires the process: pool, dispatcher, acceptor and the optional
// observability endpoints.
type server struct {
	cfg    *config.Config
	logger core.Logger

	pool     concurrency.WorkerPool
	acceptor *tcp.Acceptor
	tracer   *tracing.Provider
	scrape   *metrics.Server // nil unless metrics are enabled
}

func newServer(cfg *config.Config, logger core.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) (*server, error) {
	root, err := serveRoot(cfg.Root)
	if err != nil {
		return nil, err
	}
	policy, err := dispatch.ParsePolicy(cfg.ParseErrorPolicy)
	if err != nil {
		return nil, err
	}

	tp, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		return nil, err
	}

	pool := concurrency.NewWorkerPool(context.Background(), concurrency.WorkerPoolConfig{
		Workers:  cfg.Workers,
		Logger:   logger,
		Observer: m,
	})

	d := dispatch.New(afero.NewBasePathFs(afero.NewOsFs(), root),
		dispatch.WithNotFoundPage(cfg.NotFoundPage),
		dispatch.WithParseErrorPolicy(policy),
		dispatch.WithLogger(logger),
	)

	acceptor := tcp.NewAcceptor(pool, tcp.RequestHandler(d, cfg.ReadBufferSize), &tcp.AcceptorConfig{
		Addr:        cfg.Addr,
		AcceptRetry: cfg.AcceptRetry,
		Logger:      logger,
	})
	acceptor.Use(metrics.Middleware(m), tracing.Middleware(tp.Tracer()))

	s := &server{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		acceptor: acceptor,
		tracer:   tp,
	}
	if cfg.Metrics.Enabled {
		if err := m.RegisterAcceptor(acceptor); err != nil {
			return nil, errors.Join(err, s.close())
		}
		if err := m.RegisterPool(pool); err != nil {
			return nil, errors.Join(err, s.close())
		}
		s.scrape = metrics.NewServer(cfg.Metrics.Addr, gatherer, logger)
	}

	logger.WithFields(map[string]interface{}{
		"workers": cfg.Workers,
		"root":    root,
		"policy":  cfg.ParseErrorPolicy,
	}).Info("server configured")
	return s, nil
}

// serveRoot resolves the directory files are served from.
func serveRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return wd, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %q is not a directory", root)
	}
	return abs, nil
}

// run serves until ctx is done or the acceptor fails, then drains the pool.
func (s *server) run(ctx context.Context) error {
	acceptErr := make(chan error, 1)
	go func() { acceptErr <- s.acceptor.Start() }()

	scrapeErr := make(chan error, 1)
	if s.scrape != nil {
		go func() {
			if err := s.scrape.Start(); err != nil {
				scrapeErr <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		_ = s.acceptor.Stop()
		err = <-acceptErr
	case err = <-acceptErr:
	case err = <-scrapeErr:
		_ = s.acceptor.Stop()
		<-acceptErr
	}
	return errors.Join(err, s.close())
}

// close drains queued connections, then stops observability.
func (s *server) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pool: %w", err))
	}
	if s.scrape != nil {
		if err := s.scrape.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	stats := s.pool.Stats()
	s.logger.Infof("stopped: completed=%d failed=%d panicked=%d", stats.Completed, stats.Failed, stats.Panicked)
	return errors.Join(errs...)
}
