package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tasknest/tasknest/internal/api"
	"github.com/tasknest/tasknest/internal/cache"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/platform/logger"
)

// setupRouter assembles the chi router: standard middleware, a request-scoped
// logger in the context, the health probe and the task routes.
func setupRouter(
	cfg *config.Config,
	handler *api.TaskHandler,
	taskCache cache.TaskCache,
	appLogger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	r.Use(requestLogger(appLogger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		body := map[string]any{"status": "ok", "cache": true}
		// A degraded cache is reported but does not fail the probe; reads
		// fall through to the store.
		if !taskCache.Healthy(req.Context()) {
			body["cache"] = false
			body["status"] = "degraded"
		}
		api.RespondJSON(w, status, body)
	})

	handler.RegisterRoutes(r)
	return r
}

// requestLogger attaches a request-scoped logger to the context so lower
// layers share the request id, and logs one line per request.
func requestLogger(appLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := appLogger.With(
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			ctx := logger.WithLogger(r.Context(), reqLogger)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request completed",
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
