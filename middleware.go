package webdavd

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/webdavd/webdavd/internal/metrics"
)

// davMethods are the WebDAV verbs chi does not know about.
var davMethods = []string{
	"COPY",
	"LOCK",
	"MKCOL",
	"MOVE",
	"PROPFIND",
	"PROPPATCH",
	"UNLOCK",
}

// NewRouter mounts h on a chi router with request identification, logging
// and optional metrics collection.
func NewRouter(h *Handler, logger zerolog.Logger, m *metrics.Metrics) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	if m != nil {
		router.Use(m.Middleware)
	}

	router.Handle("/*", h)
	for _, method := range davMethods {
		chi.RegisterMethod(method)
		router.Method(method, "/*", h)
	}
	return router
}

// requestLogger injects a request-scoped logger into the context and emits
// one summary line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			l := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
