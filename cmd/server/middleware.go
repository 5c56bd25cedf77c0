package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/liamcoop/churn/internal/logger"
)

// requestLogger logs one structured line per request and feeds the 4xx/5xx
// counters reported by the health endpoint.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				logger.RecordHTTPStatus(status)

				fields := map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
					"remote_addr": r.RemoteAddr,
					"request_id":  middlewareRequestID(r),
				}
				if status >= http.StatusInternalServerError {
					log.Warn("request completed", fields)
					return
				}
				log.Info("request completed", fields)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func middlewareRequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
