// Package dispatch turns a parsed request into a response and writes it to
// the connection.
//
// GET serves the file named by the URI with its leading '/' removed. Every
// other outcome, including PUT and POST, is the 404 response whose body is
// the not-found page.
package dispatch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/fluxorio/linehttpd/pkg/core"
	"github.com/fluxorio/linehttpd/pkg/core/failfast"
	"github.com/fluxorio/linehttpd/pkg/request"
)

// DefaultNotFoundPage is the file served as the body of every 404.
const DefaultNotFoundPage = "404.html"

var (
	// ErrNotText is returned when a file is not valid UTF-8.
	ErrNotText = errors.New("file is not valid UTF-8 text")

	// ErrNotFoundPage means the not-found page itself could not be read.
	// The connection gets no response.
	ErrNotFoundPage = errors.New("not-found page unavailable")

	errNoPath = errors.New("empty path")
	errIsDir  = errors.New("is a directory")
)

// ParseErrorPolicy decides what a connection whose request failed to parse
// receives.
type ParseErrorPolicy int

const (
	// NotFoundOnParseError writes the 404 response.
	NotFoundOnParseError ParseErrorPolicy = iota

	// DropOnParseError closes the connection without writing anything.
	DropOnParseError
)

// ParsePolicy maps a config value ("not_found", "drop") to a policy.
func ParsePolicy(name string) (ParseErrorPolicy, error) {
	switch strings.ToLower(name) {
	case "", "not_found", "404":
		return NotFoundOnParseError, nil
	case "drop":
		return DropOnParseError, nil
	default:
		return 0, fmt.Errorf("unknown parse error policy %q", name)
	}
}

// Dispatcher resolves requests against a read-only filesystem.
type Dispatcher struct {
	fs           afero.Fs
	notFoundPage string
	policy       ParseErrorPolicy
	logger       core.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotFoundPage sets the path of the 404 body.
func WithNotFoundPage(path string) Option {
	return func(d *Dispatcher) { d.notFoundPage = path }
}

// WithParseErrorPolicy sets what unparseable requests receive.
func WithParseErrorPolicy(p ParseErrorPolicy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher reading from fs. Panics if fs is nil.
func New(fs afero.Fs, opts ...Option) *Dispatcher {
	failfast.NotNil(fs, "fs")
	d := &Dispatcher{
		fs:           fs,
		notFoundPage: DefaultNotFoundPage,
		policy:       NotFoundOnParseError,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = core.NewDefaultLogger()
	}
	return d
}

// Resolve decides the response for req. The only error is ErrNotFoundPage.
func (d *Dispatcher) Resolve(req *request.Request) (Response, error) {
	switch req.Method {
	case request.Get:
		content, err := d.readText(strings.TrimPrefix(req.URI, "/"))
		if err != nil {
			d.logger.Debugf("GET %s: %v", req.URI, err)
			return d.notFound()
		}
		return Response{Status: StatusOK, Body: content}, nil
	case request.Put, request.Post:
		// No write semantics.
		return d.notFound()
	default:
		return d.notFound()
	}
}

// Serve writes the response for one connection and flushes it.
//
// parseErr is the result of request.Parse; when it is non-nil req is ignored
// and the parse error policy applies. The returned status is what the
// client received (StatusNone if nothing was written). Write faults are
// returned, never retried.
func (d *Dispatcher) Serve(w io.Writer, req *request.Request, parseErr error) (Status, error) {
	var (
		resp Response
		err  error
	)
	switch {
	case parseErr != nil && d.policy == DropOnParseError:
		d.logger.Warnf("dropping connection: %v", parseErr)
		return StatusNone, nil
	case parseErr != nil:
		d.logger.Warnf("unparseable request answered with 404: %v", parseErr)
		resp, err = d.notFound()
	default:
		d.logger.Debugf("request %s", req)
		resp, err = d.Resolve(req)
	}
	if err != nil {
		return StatusNone, err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(resp.Bytes()); err != nil {
		return resp.Status, fmt.Errorf("write response: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return resp.Status, fmt.Errorf("flush response: %w", err)
	}
	return resp.Status, nil
}

func (d *Dispatcher) notFound() (Response, error) {
	content, err := d.readText(d.notFoundPage)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %s: %v", ErrNotFoundPage, d.notFoundPage, err)
	}
	return Response{Status: StatusNotFound, Body: content}, nil
}

func (d *Dispatcher) readText(path string) (string, error) {
	if path == "" {
		return "", errNoPath
	}
	if isDir, err := afero.IsDir(d.fs, path); err == nil && isDir {
		return "", fmt.Errorf("%s: %w", path, errIsDir)
	}
	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", path, ErrNotText)
	}
	return string(data), nil
}
