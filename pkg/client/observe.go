package autofilter

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for calls that did not end in an APIError with a code.
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport"
)

// call is one in-flight client request against an endpoint path.
type call struct {
	op       string
	endpoint string
	start    time.Time
}

func startCall(op, endpoint string) call {
	return call{op: op, endpoint: endpoint, start: time.Now()}
}

// outcome classifies err by the server's error code, falling back to the
// HTTP status for responses without one.
func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return outcomeTransport
	}
	if apiErr.Code != "" {
		return apiErr.Code
	}
	return "http_" + strconv.Itoa(apiErr.StatusCode)
}

type clientMetrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	searchResults *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofilter",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Client requests by operation, endpoint path and outcome (ok, error code or transport).",
	}, []string{"operation", "endpoint", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "autofilter",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Client request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	searchResults := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "autofilter",
		Subsystem: "client",
		Name:      "search_results",
		Help:      "Results per autocomplete page, create option included.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
	}, []string{"endpoint"})

	m := &clientMetrics{}
	var err error
	if m.requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if m.searchResults, err = register(reg, searchResults); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, returning the collector already registered under
// the same descriptor when another client got there first.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("autofilter: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("autofilter: metric registered with type %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer records client calls in prometheus and slog. Both are optional.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) done(c call, err error) {
	dur := time.Since(c.start)
	out := outcome(err)

	if o.metrics != nil {
		o.metrics.requests.WithLabelValues(c.op, c.endpoint, out).Inc()
		o.metrics.duration.WithLabelValues(c.op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	attrs := []any{"op", c.op, "endpoint", c.endpoint, "outcome", out, "duration", dur}
	if err != nil {
		o.logger.Warn("autofilter request failed", append(attrs, "error", err)...)
		return
	}
	o.logger.Debug("autofilter request", attrs...)
}

// searched records the size of a returned autocomplete page.
func (o *observer) searched(endpoint string, page SearchPage) {
	if o.metrics != nil {
		o.metrics.searchResults.WithLabelValues(endpoint).Observe(float64(len(page.Results)))
	}
}
