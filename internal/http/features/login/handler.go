package login

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/internal/httputil"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/metrics"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/session"
	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/auth"
	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
)

// User-facing messages. Not-found, wrong password, wrong role and (by
// default) lockout all share msgInvalidCredentials.
const (
	msgInvalidCredentials = "invalid credentials"
	msgInvalidCode        = "invalid verification code"
	msgChallengeExpired   = "challenge expired"
	msgAccountLocked      = "account locked due to too many failed login attempts. please try again later"
	msgAuthFailed         = "authentication failed"

	outcomeRoleRejected = "role_rejected"
)

// Authenticator is the credential core a surface delegates to.
type Authenticator interface {
	Authenticate(ctx context.Context, req auth.LoginRequest) (*auth.Outcome, error)
	VerifyChallenge(ctx context.Context, req auth.ChallengeRequest) (*auth.Outcome, error)
	Policy() auth.Policy
}

// SessionIssuer signs access tokens for authenticated accounts.
type SessionIssuer interface {
	Issue(account *domain.Account, surface string) (*session.Token, error)
}

// Handler serves the login endpoints of one surface.
type Handler struct {
	logger          *slog.Logger
	authenticator   Authenticator
	sessions        SessionIssuer
	cookieConfig    httputil.CookieConfig
	discloseLockout bool
}

// NewHandler creates a new login handler.
func NewHandler(
	logger *slog.Logger,
	authenticator Authenticator,
	sessions SessionIssuer,
	cookieConfig httputil.CookieConfig,
	discloseLockout bool,
) *Handler {
	return &Handler{
		logger:          logger.With("surface", authenticator.Policy().Surface),
		authenticator:   authenticator,
		sessions:        sessions,
		cookieConfig:    cookieConfig,
		discloseLockout: discloseLockout,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

// VerifyRequest completes a two-factor login.
type VerifyRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

// LoginResponse is returned on success. AccessToken is only set for
// mobile clients; browsers receive it as a cookie.
type LoginResponse struct {
	UserID      string      `json:"user_id"`
	Role        domain.Role `json:"role"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	AccessToken string      `json:"access_token,omitempty"`
}

// ChallengeResponse asks the client for a second factor.
type ChallengeResponse struct {
	TwoFactorRequired bool      `json:"two_factor_required"`
	ChallengeToken    string    `json:"challenge_token"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Login handles POST .../login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	outcome, err := h.authenticator.Authenticate(r.Context(), auth.LoginRequest{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.Code,
		ClientIP:      clientIP(r),
		UserAgent:     r.UserAgent(),
	})
	h.observe(start)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeOutcome(w, r, outcome)
}

// VerifyChallenge handles POST .../2fa/verify.
func (h *Handler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	outcome, err := h.authenticator.VerifyChallenge(r.Context(), auth.ChallengeRequest{
		Token:     req.ChallengeToken,
		Code:      req.Code,
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	})
	h.observe(start)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeOutcome(w, r, outcome)
}

func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, outcome *auth.Outcome) {
	policy := h.authenticator.Policy()

	switch outcome.Kind {
	case auth.OutcomeSuccess:
		account := outcome.Account
		if !policy.Permits(account.Role) {
			h.count(outcomeRoleRejected)
			h.logger.Warn("login rejected: role not permitted", "user_id", account.ID, "role", account.Role)
			httputil.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		token, err := h.sessions.Issue(account, policy.Surface)
		if err != nil {
			h.logger.Error("failed to issue session", "user_id", account.ID, "error", err)
			httputil.Error(w, http.StatusInternalServerError, msgAuthFailed)
			return
		}
		h.count(outcome.Kind.String())
		h.writeSession(w, r, account, token)

	case auth.OutcomeTwoFactorRequired:
		h.count(outcome.Kind.String())
		httputil.JSON(w, http.StatusOK, ChallengeResponse{
			TwoFactorRequired: true,
			ChallengeToken:    outcome.Challenge.Token,
			ExpiresAt:         outcome.Challenge.ExpiresAt,
		})

	case auth.OutcomeInvalidTwoFactorCode:
		h.count(outcome.Kind.String())
		httputil.Error(w, http.StatusUnauthorized, msgInvalidCode)

	case auth.OutcomeAccountLocked:
		h.count(outcome.Kind.String())
		if h.discloseLockout {
			if outcome.LockoutUntil != nil {
				secs := math.Ceil(time.Until(*outcome.LockoutUntil).Seconds())
				if secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(secs)))
				}
			}
			httputil.Error(w, http.StatusLocked, msgAccountLocked)
			return
		}
		httputil.Error(w, http.StatusUnauthorized, msgInvalidCredentials)

	default:
		h.count(outcome.Kind.String())
		httputil.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
	}
}

// writeSession writes the token as a cookie (web) or JSON (mobile).
func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, account *domain.Account, token *session.Token) {
	resp := LoginResponse{
		UserID:    account.ID.String(),
		Role:      account.Role,
		TokenType: "Bearer",
		ExpiresIn: int(token.TTL.Seconds()),
	}

	if httputil.IsMobileClient(r) {
		resp.AccessToken = token.AccessToken
	} else {
		httputil.SetAccessTokenCookie(w, token.AccessToken, token.TTL, h.cookieConfig)
	}
	httputil.JSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var vErr *auth.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.count("invalid_request")
		httputil.Error(w, http.StatusBadRequest, vErr.Err.Error())
	case errors.Is(err, domain.ErrChallengeExpired):
		h.count("challenge_expired")
		httputil.Error(w, http.StatusUnauthorized, msgChallengeExpired)
	default:
		h.count("error")
		h.logger.Error("authentication error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, msgAuthFailed)
	}
}

func (h *Handler) count(outcome string) {
	metrics.LoginAttemptsTotal.WithLabelValues(h.authenticator.Policy().Surface, outcome).Inc()
}

func (h *Handler) observe(start time.Time) {
	metrics.LoginDurationSeconds.WithLabelValues(h.authenticator.Policy().Surface).Observe(time.Since(start).Seconds())
}

// clientIP strips the port from RemoteAddr. Forwarded headers only reach it
// through TrustedProxyIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
