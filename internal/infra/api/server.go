package api

import (
	"net/http"
	"time"

	"gramothi-backend/internal/config"
	"gramothi-backend/internal/infra/api/apiv1"
	"gramothi-backend/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// NewRouter assembles the HTTP surface: /health and /metrics stay open,
// everything under /api/v1 goes through the middleware chain and the auth
// guard.
func NewRouter(cfg *config.ServerConfig, v1 *apiv1.Server, logger *zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(gr chi.Router) {
		gr.Use(
			TraceID(logger),
			RequestLog(logger),
			Recover(logger),
			Timeout(60*time.Second),
			Auth(cfg.AuthSecret, logger),
		)
		apiv1.RegisterAPIV1(gr, v1)
	})

	return r
}
