package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/linehttpd/pkg/core"
	"github.com/fluxorio/linehttpd/pkg/core/concurrency"
	"github.com/fluxorio/linehttpd/pkg/core/failfast"
)

// DefaultAddr is the loopback bind address used when none is configured.
const DefaultAddr = "127.0.0.1:7878"

const maxAcceptBackoff = time.Second

// AcceptorConfig configures an Acceptor.
type AcceptorConfig struct {
	Addr string

	// AcceptRetry retries failed Accept calls with exponential backoff
	// instead of returning the error from Start/Serve.
	AcceptRetry bool

	Logger core.Logger
}

// DefaultAcceptorConfig returns the configuration for addr, or DefaultAddr.
func DefaultAcceptorConfig(addr string) *AcceptorConfig {
	if addr == "" {
		addr = DefaultAddr
	}
	return &AcceptorConfig{Addr: addr}
}

// Acceptor accepts connections and submits one job per connection to a
// worker pool. Accepting happens on the goroutine calling Start or Serve;
// everything else happens on pool workers.
type Acceptor struct {
	pool   concurrency.WorkerPool
	config *AcceptorConfig
	logger core.Logger

	mu          sync.RWMutex
	listener    net.Listener
	handler     ConnectionHandler
	middlewares []Middleware
	effective   ConnectionHandler
	stopping    int32

	// Metrics (atomic for thread-safety)
	totalAccepted int64
	submitted     int64
	submitErrors  int64
	acceptErrors  int64
	handled       int64
	handlerErrors int64
}

// NewAcceptor creates an acceptor feeding pool. Panics on nil pool or handler.
func NewAcceptor(pool concurrency.WorkerPool, handler ConnectionHandler, config *AcceptorConfig) *Acceptor {
	failfast.NotNil(pool, "pool")
	failfast.NotNil(handler, "handler")
	if config == nil {
		config = DefaultAcceptorConfig("")
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	logger := config.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	a := &Acceptor{
		pool:    pool,
		config:  config,
		logger:  logger,
		handler: handler,
	}
	a.effective = handler
	return a
}

// Use adds middleware. Call before Start. Panics on nil middleware.
func (a *Acceptor) Use(mw ...Middleware) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range mw {
		failfast.NotNil(m, "middleware")
		a.middlewares = append(a.middlewares, m)
	}
	h := a.handler
	// First added runs outermost.
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	a.effective = h
}

// Start listens on the configured address and runs the accept loop. It
// blocks until Stop is called (returns nil) or Accept fails without retry.
func (a *Acceptor) Start() error {
	ln, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.config.Addr, err)
	}
	return a.Serve(ln)
}

// Serve runs the accept loop on ln and takes ownership of it.
func (a *Acceptor) Serve(ln net.Listener) error {
	a.mu.Lock()
	if atomic.LoadInt32(&a.stopping) == 1 {
		a.mu.Unlock()
		return ln.Close()
	}
	a.listener = ln
	a.mu.Unlock()
	a.logger.Infof("accepting connections on %s", ln.Addr())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if atomic.LoadInt32(&a.stopping) == 1 || errors.Is(err, net.ErrClosed) {
				return nil
			}
			atomic.AddInt64(&a.acceptErrors, 1)
			if !a.config.AcceptRetry {
				return fmt.Errorf("accept: %w", err)
			}
			backoff = nextBackoff(backoff)
			a.logger.Warnf("accept failed, retrying in %v: %v", backoff, err)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		atomic.AddInt64(&a.totalAccepted, 1)
		a.submit(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > maxAcceptBackoff {
		return maxAcceptBackoff
	}
	return d
}

func (a *Acceptor) submit(conn net.Conn) {
	id := core.GenerateConnID()
	task := concurrency.NewNamedTask("conn-"+id, func(ctx context.Context) error {
		return a.handle(ctx, id, conn)
	})
	if err := a.pool.Submit(task); err != nil {
		atomic.AddInt64(&a.submitErrors, 1)
		a.logger.Errorf("submit connection %s: %v", id, err)
		_ = conn.Close()
		return
	}
	atomic.AddInt64(&a.submitted, 1)
}

// handle runs on a worker. A panic in the handler is not recovered here:
// it propagates to the pool, which retires the worker.
func (a *Acceptor) handle(ctx context.Context, id string, conn net.Conn) error {
	defer conn.Close()

	a.mu.RLock()
	h := a.effective
	a.mu.RUnlock()

	cctx := &ConnContext{
		Context:    core.WithConnID(ctx, id),
		Conn:       conn,
		ID:         id,
		Logger:     a.logger.WithFields(map[string]interface{}{"conn": id}),
		LocalAddr:  conn.LocalAddr(),
		RemoteAddr: conn.RemoteAddr(),
	}

	err := h(cctx)
	atomic.AddInt64(&a.handled, 1)
	if err != nil {
		atomic.AddInt64(&a.handlerErrors, 1)
		return fmt.Errorf("connection %s from %s: %w", id, cctx.RemoteAddr, err)
	}
	return nil
}

// Stop closes the listener, ending the accept loop. Jobs already submitted
// keep running; shutting the pool down is the owner's job.
func (a *Acceptor) Stop() error {
	atomic.StoreInt32(&a.stopping, 1)

	a.mu.Lock()
	ln := a.listener
	a.listener = nil
	a.mu.Unlock()

	if ln != nil {
		return ln.Close()
	}
	return nil
}

// ListeningAddr returns the bound address, or "" when not listening.
func (a *Acceptor) ListeningAddr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Metrics returns current acceptor counters.
func (a *Acceptor) Metrics() AcceptorMetrics {
	return AcceptorMetrics{
		TotalAccepted: atomic.LoadInt64(&a.totalAccepted),
		Submitted:     atomic.LoadInt64(&a.submitted),
		SubmitErrors:  atomic.LoadInt64(&a.submitErrors),
		AcceptErrors:  atomic.LoadInt64(&a.acceptErrors),
		Handled:       atomic.LoadInt64(&a.handled),
		HandlerErrors: atomic.LoadInt64(&a.handlerErrors),
	}
}
