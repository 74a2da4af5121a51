package tracing

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/linehttpd/pkg/tcp"
)

// SpanName is the name of the per-connection span.
const SpanName = "linehttpd.connection"

// Attribute keys set on connection spans.
const (
	AttrConnID    = attribute.Key("linehttpd.conn.id")
	AttrPeer      = attribute.Key("net.peer.addr")
	AttrMethod    = attribute.Key("linehttpd.request.method")
	AttrURI       = attribute.Key("linehttpd.request.uri")
	AttrStatus    = attribute.Key("linehttpd.response.status")
	AttrBytesRead = attribute.Key("linehttpd.request.bytes")
)

// Middleware wraps each connection job in a span. The span context is
// placed on ConnContext.Context for inner handlers. A panicking handler
// marks the span as failed and the panic continues to the pool.
func Middleware(tracer trace.Tracer) tcp.Middleware {
	return func(next tcp.ConnectionHandler) tcp.ConnectionHandler {
		return func(c *tcp.ConnContext) (err error) {
			attrs := []attribute.KeyValue{AttrConnID.String(c.ID)}
			if c.RemoteAddr != nil {
				attrs = append(attrs, AttrPeer.String(c.RemoteAddr.String()))
			}
			ctx, span := tracer.Start(c.Context, SpanName,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			parent := c.Context
			c.Context = ctx

			defer func() {
				c.Context = parent
				if r := recover(); r != nil {
					span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", r))
					span.End()
					panic(r)
				}
				finish(span, c, err)
			}()

			return next(c)
		}
	}
}

func finish(span trace.Span, c *tcp.ConnContext, err error) {
	if c.Request != nil {
		span.SetAttributes(
			AttrMethod.String(c.Request.Method.String()),
			AttrURI.String(c.Request.URI),
		)
	}
	span.SetAttributes(
		AttrStatus.String(c.Status.String()),
		AttrBytesRead.Int(c.BytesRead),
	)
	if c.ParseErr != nil {
		span.AddEvent("parse error", trace.WithAttributes(attribute.String("error", c.ParseErr.Error())))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
