package api

import (
	"github.com/gorilla/mux"
)

// RouterConfig holds the middleware settings of the API router
type RouterConfig struct {
	Auth         *AuthManager
	RateLimitRPS int
	// Done stops background middleware goroutines
	Done <-chan struct{}
}

// NewRouter registers the autoscale endpoints under /api/v1
func NewRouter(h *AutoscaleHandler, cfg RouterConfig) *mux.Router {
	if cfg.Auth == nil {
		cfg.Auth = NewAuthManager("")
	}

	router := mux.NewRouter()
	router.Use(
		mux.MiddlewareFunc(RecoveryMiddleware()),
		mux.MiddlewareFunc(LoggingMiddleware()),
	)

	v1 := router.PathPrefix("/api/v1/autoscale").Subrouter()
	v1.Use(mux.MiddlewareFunc(ChainMiddleware(
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.Done),
		AuthMiddleware(cfg.Auth),
	)))

	v1.HandleFunc("/hourly", h.RunHourly).Methods("POST")
	v1.HandleFunc("/daily", h.RunDaily).Methods("POST")
	v1.HandleFunc("/rules/{id}/run", h.RunRule).Methods("POST")
	v1.HandleFunc("/history", h.ListHistory).Methods("GET")

	return router
}
