package login

import (
	"net/http"

	"github.com/Asiful600w/Daily-Fresh-sub001/internal/http/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the login routes under r, rate limited per IP.
func (h *Handler) RegisterRoutes(r chi.Router, limiters map[string]func(http.Handler) http.Handler) {
	r.With(middleware.RequireJSON, limiters[middleware.LimiterLogin]).Post("/login", h.Login)
	r.With(middleware.RequireJSON, limiters[middleware.LimiterVerify]).Post("/2fa/verify", h.VerifyChallenge)
}
