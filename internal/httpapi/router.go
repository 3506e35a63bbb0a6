package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/flighthook/flighthook/internal/log"
)

// Router builds the chi router for this server's REST surface. It is
// exported separately from Server so the webserver actor can mount it
// under its own net/http server and bind address.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(requestLogger)
	r.Use(rateLimit())

	r.Route("/api", func(api chi.Router) {
		api.Get("/status", s.handleStatus)
		api.Get("/shots", s.handleShots)
		api.Post("/shots/convert", s.handleShotsConvert)
		api.Post("/mode", s.handleSetMode)
		api.Get("/settings", s.handleGetSettings)
		api.Post("/settings", s.handlePostSettings)
	})

	return withTracing("flighthook-httpapi", r)
}

// requestLogger emits one structured log line per request, mirroring
// the fields the rest of the system logs with (component, request id).
func requestLogger(next http.Handler) http.Handler {
	logger := log.WithComponent("httpapi")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info().
			Str(log.FieldRequestID, chimw.GetReqID(r.Context())).
			Str(log.FieldPath, r.URL.Path).
			Str("method", r.Method).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	})
}
