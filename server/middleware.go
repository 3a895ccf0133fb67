package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares around a handler.
type Chain struct {
	handler     http.Handler
	middlewares []Middleware
}

// NewChain creates a Chain around h.
func NewChain(h http.Handler) *Chain {
	if h == nil {
		panic("chain handler cannot be nil")
	}
	return &Chain{handler: h}
}

// WithMiddleware adds middlewares to the chain. They run in the order given,
// the first one being the outermost:
//
//	NewChain(h).WithMiddleware(mw1, mw2)
//
// runs mw1, then mw2, then h.
func (c *Chain) WithMiddleware(middlewares ...Middleware) *Chain {
	for _, mw := range middlewares {
		c.middlewares = append([]Middleware{mw}, c.middlewares...)
	}
	return c
}

// Handler returns h wrapped by every middleware.
func (c *Chain) Handler() http.Handler {
	handler := c.handler
	for _, mw := range c.middlewares {
		handler = mw(handler)
	}
	return handler
}

// responseRecorder captures the status code. It starts at 200 because
// handlers may write the body without calling WriteHeader.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func record(w http.ResponseWriter) *responseRecorder {
	if rec, ok := w.(*responseRecorder); ok {
		return rec
	}
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

// RequestLog logs every request at debug level.
func RequestLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, req)

			logger.Debug("http_request",
				slog.String("method", strings.ToUpper(req.Method)),
				slog.String("uri", cutStr(req.URL.RequestURI(), 256)),
				slog.Int("status", rec.status),
				slog.String("duration", time.Since(start).String()),
				slog.String("remote_addr", req.RemoteAddr),
			)
		})
	}
}

// cutStr limits string length by adding ellipsis if needed
func cutStr(str string, max int) string {
	if len(str) > max {
		return str[:max] + "..."
	}
	return str
}

// RequestMetrics counts requests by status code in
// <namespace>_http_requests_total. It panics if the counter cannot be
// registered with reg.
func RequestMetrics(namespace string, reg prometheus.Registerer) Middleware {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server, labeled by status code.",
		},
		[]string{"code"},
	)
	if err := reg.Register(requestsTotal); err != nil {
		panic("metrics: failed to register http_requests_total counter vec: " + err.Error())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := record(w)
			next.ServeHTTP(rec, req)
			requestsTotal.WithLabelValues(strconv.Itoa(rec.status)).Inc()
		})
	}
}
