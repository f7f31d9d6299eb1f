package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/compose-network/courier/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// routeOf prefers the mux path template so ids in the path do not explode label cardinality.
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Logger writes one access log line per request. Successful requests log at debug
// so that probes and scrapes stay quiet at the default level.
func Logger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			var evt *zerolog.Event
			switch {
			case rec.status >= http.StatusInternalServerError:
				evt = log.Error()
			case rec.status >= http.StatusBadRequest:
				evt = log.Warn()
			default:
				evt = log.Debug()
			}

			evt.
				Str("request_id", RequestIDFrom(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", rec.status).
				Int64("bytes", rec.bytes).
				Dur("latency", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// Metrics records request counts and latencies per route template.
// It must sit inside the router (Router.Use) for route templates to resolve.
func Metrics() mux.MiddlewareFunc {
	reg := metrics.NewComponentRegistry("courier", "http")
	requests := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "requests_total",
		Help: "HTTP requests served by route and status code",
	}, []string{"route", "method", "code"})
	latency := reg.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: metrics.NetworkBuckets,
	}, []string{"route"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := routeOf(r)
			requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
