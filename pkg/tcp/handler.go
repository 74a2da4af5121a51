package tcp

import (
	"errors"
	"fmt"
	"io"

	"github.com/fluxorio/linehttpd/pkg/core/failfast"
	"github.com/fluxorio/linehttpd/pkg/dispatch"
	"github.com/fluxorio/linehttpd/pkg/request"
)

// DefaultReadBufferSize is the size of the single read taken per connection.
const DefaultReadBufferSize = 1024

// RequestHandler returns the connection handler of the file server: one read
// of at most readBufferSize bytes, parse, dispatch. There is no read loop, so
// anything past the first read is never seen. There are no deadlines either:
// a client that never sends keeps its worker busy. A client that closes
// without sending anything gets no response.
func RequestHandler(d *dispatch.Dispatcher, readBufferSize int) ConnectionHandler {
	failfast.NotNil(d, "dispatcher")
	if readBufferSize <= 0 {
		readBufferSize = DefaultReadBufferSize
	}

	return func(c *ConnContext) error {
		buf := make([]byte, readBufferSize)
		n, readErr := c.Conn.Read(buf)
		if errors.Is(readErr, io.EOF) {
			readErr = nil
		}
		if readErr != nil {
			readErr = fmt.Errorf("read request: %w", readErr)
			if n == 0 {
				return readErr
			}
		}
		c.BytesRead = n

		c.Request, c.ParseErr = request.Parse(buf[:n])
		if n == 0 {
			c.Logger.Debug("peer closed before sending a request")
			return nil
		}
		if c.ParseErr == nil {
			c.Logger.Debugf(">> request (%d bytes): %s", n, c.Request)
		}

		// Bytes that arrived with a read fault are still answered.
		status, err := d.Serve(c.Conn, c.Request, c.ParseErr)
		c.Status = status
		if readErr != nil {
			return errors.Join(readErr, err)
		}
		return err
	}
}
