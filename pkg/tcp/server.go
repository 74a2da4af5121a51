package tcp

import (
	"context"
	"net"

	"github.com/fluxorio/linehttpd/pkg/core"
	"github.com/fluxorio/linehttpd/pkg/dispatch"
	"github.com/fluxorio/linehttpd/pkg/request"
)

// ConnectionHandler handles one accepted connection on a pool worker.
// The acceptor closes the connection after the handler returns.
type ConnectionHandler func(ctx *ConnContext) error

// Middleware wraps a ConnectionHandler.
type Middleware func(next ConnectionHandler) ConnectionHandler

// ConnContext is the per-connection state a job carries. It is owned by the
// single worker running the job, so its fields need no locking.
type ConnContext struct {
	Context context.Context
	Conn    net.Conn
	ID      string
	Logger  core.Logger

	LocalAddr  net.Addr
	RemoteAddr net.Addr

	// Filled in by the request handler for outer middleware.
	BytesRead int
	Request   *request.Request
	ParseErr  error
	Status    dispatch.Status
}

// AcceptorMetrics is a snapshot of acceptor counters.
type AcceptorMetrics struct {
	TotalAccepted int64 // Connections accepted
	Submitted     int64 // Jobs handed to the pool
	SubmitErrors  int64 // Jobs the pool refused
	AcceptErrors  int64 // Accept failures (retried or fatal)
	Handled       int64 // Jobs whose handler returned
	HandlerErrors int64 // Jobs whose handler returned an error
}
