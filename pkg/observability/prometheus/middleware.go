package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fluxorio/linehttpd/pkg/tcp"
)

// Middleware records per-connection outcome, response status and request
// size. Register it outermost so the status set by the request handler is
// visible after next returns.
func Middleware(m *Metrics) tcp.Middleware {
	return func(next tcp.ConnectionHandler) tcp.ConnectionHandler {
		return func(c *tcp.ConnContext) error {
			err := next(c)

			if err != nil {
				m.ConnectionsTotal.WithLabelValues("error").Inc()
			} else {
				m.ConnectionsTotal.WithLabelValues("ok").Inc()
			}
			m.ResponsesTotal.WithLabelValues(c.Status.String()).Inc()
			if c.BytesRead > 0 {
				m.RequestBytes.Observe(float64(c.BytesRead))
			}
			return err
		}
	}
}

// RegisterAcceptor exposes the acceptor's own counters.
func (m *Metrics) RegisterAcceptor(a *tcp.Acceptor) error {
	counters := []struct {
		name, help string
		value      func(tcp.AcceptorMetrics) int64
	}{
		{"linehttpd_connections_accepted_total", "Connections accepted by the listener", func(s tcp.AcceptorMetrics) int64 { return s.TotalAccepted }},
		{"linehttpd_accept_errors_total", "Failed Accept calls", func(s tcp.AcceptorMetrics) int64 { return s.AcceptErrors }},
		{"linehttpd_submit_errors_total", "Connection jobs refused by the pool", func(s tcp.AcceptorMetrics) int64 { return s.SubmitErrors }},
	}
	for _, c := range counters {
		value := c.value
		err := m.registerer.Register(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(value(a.Metrics())) },
		))
		if err != nil {
			return err
		}
	}
	return nil
}
