package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/internal/config"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/httputil"
	"github.com/go-chi/httprate"
)

// Rate limiter keys returned by CreateRateLimiters.
const (
	LimiterLogin  = "login"
	LimiterVerify = "verify"
)

const msgTooManyAttempts = "too many attempts. please try again later"

// RateLimitConfig sizes one limiter. Name only labels log lines.
type RateLimitConfig struct {
	Name     string
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit limits requests per client IP and endpoint. The IP is read from
// RemoteAddr only. Behind a proxy, run TrustedProxyIP first.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("limiter", cfg.Name)

	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate limit exceeded",
				"ip", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
			)
			httputil.Error(w, http.StatusTooManyRequests, msgTooManyAttempts)
		}),
	)
}

// NoRateLimit passes requests through unchanged.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

// CreateRateLimiters builds the login and verify limiters keyed by
// LimiterLogin and LimiterVerify. Each call returns fresh counters.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	budgets := map[string]struct{ requests, minutes int }{
		LimiterLogin:  {cfg.LoginRequestsPerWindow, cfg.LoginWindowMinutes},
		LimiterVerify: {cfg.VerifyRequestsPerWindow, cfg.VerifyWindowMinutes},
	}

	limiters := make(map[string]func(http.Handler) http.Handler, len(budgets))
	for name, b := range budgets {
		if !cfg.Enabled {
			limiters[name] = NoRateLimit()
			continue
		}
		limiters[name] = RateLimit(RateLimitConfig{
			Name:     name,
			Requests: b.requests,
			Window:   time.Duration(b.minutes) * time.Minute,
			Logger:   logger,
		})
	}
	return limiters
}
