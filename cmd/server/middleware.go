package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamcoop/cardiorisk/internal/logger"
)

// requestLogger logs one record per request and feeds the HTTP counters.
// Requests slower than slow are counted and logged at warn; zero disables
// the check.
func requestLogger(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			}

			switch {
			case status >= 500:
				logger.ErrorHttp5xx()
				logger.Logger.Error("Request failed", attrs...)
			case status >= 400:
				logger.WarnHttp4xx(status)
				logger.Logger.Warn("Request rejected", attrs...)
			default:
				logger.Debug("Request handled", attrs...)
			}

			if slow > 0 && elapsed > slow {
				logger.WarnSlowRequest()
				logger.Logger.Warn("Slow request", attrs...)
			}
		})
	}
}
