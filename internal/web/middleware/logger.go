package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attendance/internal/logging"
)

// RequestLogger logs one line per request through the shared logrus logger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := logging.Fields{
			logging.RequestIDKey: chiMiddleware.GetReqID(r.Context()),
			"method":             r.Method,
			"path":               r.URL.Path,
			"status":             status,
			"bytes":              ww.BytesWritten(),
			"duration":           time.Since(start).String(),
			"remote":             r.RemoteAddr,
		}
		switch {
		case status >= http.StatusInternalServerError:
			logging.Error(fields, "request failed")
		case status >= http.StatusBadRequest:
			logging.Warn(fields, "request rejected")
		default:
			logging.Info(fields, "request served")
		}
	})
}
