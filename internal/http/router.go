package http

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/Asiful600w/Daily-Fresh-sub001/internal/config"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/http/features/login"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/http/middleware"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/httputil"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StorefrontPrefix = "/v1/auth"
	AdminPrefix      = "/admin/v1/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger             *slog.Logger
	Storefront         *login.Handler
	Admin              *login.Handler
	RateLimitConfig    config.RateLimitConfig
	SecurityHeaders    config.SecurityHeadersConfig
	MaxRequestBodySize int64
	// TrustedProxies may set the client address via X-Forwarded-For.
	// Empty keys rate limits and audit rows on the socket peer.
	TrustedProxies []netip.Prefix
	// MetricsHandler overrides the default Prometheus handler. Nil serves
	// the default registry.
	MetricsHandler http.Handler
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.TrustedProxyIP(cfg.TrustedProxies))
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// Each surface gets its own limiter set so storefront traffic cannot
	// exhaust the admin budget.
	if cfg.Storefront != nil {
		limiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
		r.Route(StorefrontPrefix, func(r chi.Router) {
			cfg.Storefront.RegisterRoutes(r, limiters)
		})
	}
	if cfg.Admin != nil {
		limiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
		r.Route(AdminPrefix, func(r chi.Router) {
			cfg.Admin.RegisterRoutes(r, limiters)
		})
	}

	return r
}
