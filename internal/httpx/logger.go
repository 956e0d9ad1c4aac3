package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

// Logger returns a middleware that logs every request once it completes.
func Logger() func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			saw := &statusAwareResponseWriter{ResponseWriter: w}

			handler.ServeHTTP(saw, r)

			level := slog.LevelInfo
			if saw.Status() >= 500 {
				level = slog.LevelError
			}

			slog.Log(r.Context(), level, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", saw.Status(),
				"bytes", saw.bytes,
				"duration", time.Since(startTime))
		})
	}
}
