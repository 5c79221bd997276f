package handler

import (
	"net/http"

	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/metrics"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
)

// NewRouter assembles the routes and the middleware chain. m and lim may be
// nil; without m no /metrics route is exposed and without lim no limit applies.
func NewRouter(h *PurchaseHandler, log logger.Logger, m *metrics.Metrics, lim *limiter.Limiter) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	if m != nil {
		router.Use(middleware.MetricsMiddleware(m))
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	if lim != nil {
		router.Use(middleware.RateLimitMiddleware(lim, log))
	}

	h.RegisterRoutes(router)
	return router
}
