package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/slotwise/slotwise/pkg/observability"
)

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestContext tags every request with a request ID and correlation ID,
// honoring an inbound X-Correlation-ID, and records timing metrics.
func requestContext(logger *slog.Logger, metrics observability.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.NewRequestContext(r.Context(), r.Header.Get("X-Correlation-ID"))
		ctx = observability.WithOperation(ctx, r.Method+" "+r.URL.Path)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := observability.StartTimer("http.request").
			WithMetrics(metrics).
			WithTags(observability.T("method", r.Method))

		next.ServeHTTP(recorder, r.WithContext(ctx))

		duration := timer.Stop()
		logger.InfoContext(ctx, "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", strconv.Itoa(recorder.status),
			"duration_ms", duration.Milliseconds(),
		)
	})
}
