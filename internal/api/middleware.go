package api

import (
	"net/http"
	"time"

	"github.com/itstheanurag/ligo-compiler-api/internal/metrics"
	"github.com/rs/zerolog"
)

// AccessLog logs one line per request.
func AccessLog(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &metrics.StatusWriter{ResponseWriter: w, Status: http.StatusOK}

			next.ServeHTTP(sw, r)

			event := logger.Info()
			if sw.Status >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.Status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
