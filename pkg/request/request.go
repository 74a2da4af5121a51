// Package request parses the line-oriented request header read from a
// connection.
//
// The wire format is a start line "METHOD URI VERSION", zero or more
// "key: value" header lines, an empty line and, for methods other than GET,
// a raw body. There is no Content-Length handling: the body is whatever the
// buffer holds after the headers.
package request

import (
	"fmt"
	"sort"
	"strings"
)

// Request is one parsed request. It is not modified after Parse returns.
type Request struct {
	Method  Method
	URI     string
	Version string

	// Headers maps keys, case-sensitive as received, to the last value seen.
	Headers map[string]string

	// Body is nil for GET requests and for empty bodies.
	Body *string
}

// Header returns the value of a header by exact key.
func (r *Request) Header(key string) (string, bool) {
	v, ok := r.Headers[key]
	return v, ok
}

// HasBody reports whether the request carries a body.
func (r *Request) HasBody() bool {
	return r.Body != nil
}

// String renders the request for debug logs.
func (r *Request) String() string {
	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", r.Method, r.URI, r.Version)
	for _, k := range keys {
		fmt.Fprintf(&b, " [%s: %s]", k, r.Headers[k])
	}
	if r.Body != nil {
		fmt.Fprintf(&b, " body=%dB", len(*r.Body))
	}
	return b.String()
}
