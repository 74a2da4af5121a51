package dispatch

import (
	"strconv"
)

// Status is the outcome written to the client. StatusNone means the
// connection was dropped without a response.
type Status int

const (
	StatusNone     Status = 0
	StatusOK       Status = 200
	StatusNotFound Status = 404
)

// String returns the status code as text, "none" for StatusNone.
func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	return strconv.Itoa(int(s))
}

const (
	okStatusLine       = "HTTP/1.1 200 OK\r\n"
	notFoundStatusLine = "HTTP/1.1 404 NOT FOUND\r\n"

	// lengthField is deliberately not "Content-Length"; existing clients
	// and fixtures expect this exact spelling.
	lengthField = "ContentLength"
)

// Response is a fully resolved reply.
type Response struct {
	Status Status
	Body   string
}

// Bytes renders the response in wire format.
func (r Response) Bytes() []byte {
	switch r.Status {
	case StatusOK:
		return []byte(okStatusLine + lengthField + ": " + strconv.Itoa(len(r.Body)) + "\r\n\r\n" + r.Body)
	case StatusNotFound:
		return []byte(notFoundStatusLine + "\r\n" + r.Body)
	default:
		return nil
	}
}
