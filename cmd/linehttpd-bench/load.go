package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/linehttpd/pkg/core"
	"github.com/fluxorio/linehttpd/pkg/core/concurrency"
)

// loadOptions describes one load run.
type loadOptions struct {
	Addr        string
	Request     string
	Connections int // total connections to open
	Concurrency int // connections in flight
	Timeout     time.Duration
	Logger      core.Logger
}

// report summarizes a load run.
type report struct {
	OK       int64
	NotFound int64
	Dropped  int64 // connection closed with no response
	Errors   int64 // dial, write or read failures
	Elapsed  time.Duration
	P50, P99 time.Duration
}

func (r report) String() string {
	total := r.OK + r.NotFound + r.Dropped + r.Errors
	rate := 0.0
	if r.Elapsed > 0 {
		rate = float64(total) / r.Elapsed.Seconds()
	}
	return fmt.Sprintf("%d conns in %v (%.0f/s): 200=%d 404=%d dropped=%d errors=%d p50=%v p99=%v",
		total, r.Elapsed.Round(time.Millisecond), rate, r.OK, r.NotFound, r.Dropped, r.Errors, r.P50, r.P99)
}

var (
	okPrefix       = []byte("HTTP/1.1 200 OK\r\n")
	notFoundPrefix = []byte("HTTP/1.1 404 NOT FOUND\r\n")
)

// runLoad opens opts.Connections connections, opts.Concurrency at a time,
// each sending opts.Request once and reading until the server closes.
func runLoad(ctx context.Context, opts loadOptions) (report, error) {
	if opts.Connections <= 0 || opts.Concurrency <= 0 {
		return report{}, fmt.Errorf("connections and concurrency must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = core.NewNopLogger()
	}

	pool := concurrency.NewWorkerPool(ctx, concurrency.WorkerPoolConfig{
		Workers: opts.Concurrency,
		Logger:  opts.Logger,
	})

	var (
		r         report
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, opts.Connections)
	)
	start := time.Now()
	for i := 0; i < opts.Connections; i++ {
		task := concurrency.NewNamedTask(fmt.Sprintf("client-%d", i), func(ctx context.Context) error {
			t0 := time.Now()
			resp, err := roundTrip(ctx, opts.Addr, opts.Request, opts.Timeout)
			elapsed := time.Since(t0)
			switch {
			case err != nil:
				atomic.AddInt64(&r.Errors, 1)
				return err
			case bytes.HasPrefix(resp, okPrefix):
				atomic.AddInt64(&r.OK, 1)
			case bytes.HasPrefix(resp, notFoundPrefix):
				atomic.AddInt64(&r.NotFound, 1)
			default:
				atomic.AddInt64(&r.Dropped, 1)
			}
			mu.Lock()
			latencies = append(latencies, elapsed)
			mu.Unlock()
			return nil
		})
		if err := pool.Submit(task); err != nil {
			return report{}, err
		}
	}
	if err := pool.Close(); err != nil {
		return report{}, err
	}
	r.Elapsed = time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	r.P50 = percentile(latencies, 50)
	r.P99 = percentile(latencies, 99)
	return r, nil
}

func roundTrip(ctx context.Context, addr, raw string, timeout time.Duration) ([]byte, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if _, err := io.WriteString(conn, raw); err != nil {
		return nil, err
	}
	return io.ReadAll(conn)
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := (len(sorted)*p + 99) / 100
	if i > 0 {
		i--
	}
	return sorted[i]
}
