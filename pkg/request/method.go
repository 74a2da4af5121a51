package request

import (
	"fmt"
)

// Method is the closed set of request methods the server understands.
type Method int

const (
	Get Method = iota
	Put
	Post
)

// String returns the wire token of the method.
func (m Method) String() string {
	switch m {
	case Get:
		return "GET"
	case Put:
		return "PUT"
	case Post:
		return "POST"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod matches a wire token case-sensitively.
func ParseMethod(token string) (Method, error) {
	switch token {
	case "GET":
		return Get, nil
	case "PUT":
		return Put, nil
	case "POST":
		return Post, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrMethod, token)
	}
}
