package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/tallybot/pkg/metrics"
)

// MetricsMiddleware records request count, latency in milliseconds and,
// for 4xx and 5xx responses, the error class of every call to next.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Microseconds())/1000)

		if rec.status < http.StatusBadRequest {
			return
		}
		class, severity := classify(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
		metrics.RecordErrorByType(class, severity)
	}
}

// classify names the error class and severity of a failed response.
// Upstream and availability failures are the operator's problem; bad
// input and unknown names are the requester's.
func classify(status int) (class, severity string) {
	switch status {
	case http.StatusBadGateway:
		return "fetch_failed", "high"
	case http.StatusServiceUnavailable:
		return "unavailable", "high"
	case http.StatusTooManyRequests:
		return "backpressure", "medium"
	case http.StatusUnprocessableEntity:
		return "malformed", "medium"
	case http.StatusNotFound:
		return "not_found", "low"
	}
	if status >= http.StatusInternalServerError {
		return "server_error", "high"
	}
	return "client_error", "low"
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
