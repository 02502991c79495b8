package ops

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dcrespo-dev/orderstream/pkg/config"
	"github.com/dcrespo-dev/orderstream/pkg/logger"
)

// NewRouter exposes the worker's operational surface: liveness and metrics.
func NewRouter(cfg *config.Config, logg *logger.Logger, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx := logg.WithField(req.Context(), "path", req.URL.Path)
		logg.Info(ctx, "health.check")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
