package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// requestLimit and windowSize bound the REST surface to a per-IP rate
// generous enough for a local WebSocket/HTTP client polling status and
// shot history, but tight enough to blunt an accidental hot loop.
const (
	requestLimit = 600
	windowSize   = time.Minute
)

// rateLimit applies a per-IP sliding-window limit to every request.
func rateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowSize,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}
