package request

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty means the input held no start line.
	ErrEmpty = errors.New("empty request")

	// ErrStartLine means the start line did not split into exactly
	// method, URI and version.
	ErrStartLine = errors.New("malformed start line")

	// ErrMethod means the method token is not GET, PUT or POST.
	ErrMethod = errors.New("unsupported method")

	// ErrHeaderLine means a header line had no ':' delimiter.
	ErrHeaderLine = errors.New("malformed header line")
)

// ParseError reports where a parse failed. Line is 1-based.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse request: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
