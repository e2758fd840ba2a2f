// Package credauth provides embeddable credential authentication for the
// Daily Fresh storefront and admin surfaces.
//
// Usage:
//
//	db, _ := sql.Open("postgres", "postgres://...")
//
//	svc, err := credauth.New(credauth.Config{
//	    DB:        db,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(context.Background())
//
//	http.ListenAndServe(":8080", svc.Router())
//
// Both surfaces share one account store. The storefront admits CUSTOMER
// accounts and audits to audit_logs; the admin surface admits SUPERADMIN,
// ADMIN and MERCHANT accounts and audits to admin_audit_logs.
package credauth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/internal/config"
	httpserver "github.com/Asiful600w/Daily-Fresh-sub001/internal/http"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/http/features/login"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/httputil"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/metrics"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/session"
	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/auth"
	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/cache"
	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/repository"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const minJWTSecretLength = 32

// Config holds configuration for the authentication service.
type Config struct {
	// DB is the PostgreSQL connection holding users, audit and challenge tables.
	DB *sql.DB

	// JWTSecret signs access tokens (required, >= 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim (default: "daily-fresh").
	JWTIssuer string

	// AccessTokenTTL is the access token lifetime (default: 15m).
	AccessTokenTTL time.Duration

	// TwoFactorEncryptionKey decrypts stored TOTP secrets (32 bytes).
	// Nil means secrets are stored as plain base32.
	TwoFactorEncryptionKey []byte

	// Lockout settings (defaults: 5 attempts, 30m, 5m challenge TTL).
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	ChallengeTTL      time.Duration

	StrictEmailValidation bool
	HashConcurrency       int64

	// DummyHashAlgorithm ("argon2id" or "bcrypt") and DummyBcryptCost set
	// the hash verified for unknown or locked accounts. Match the bulk of
	// stored hashes so those paths take as long as a wrong password.
	DummyHashAlgorithm string
	DummyBcryptCost    int

	// DiscloseLockout answers locked accounts with 423 instead of the
	// generic invalid credentials response.
	DiscloseLockout bool

	// AuditQueueSize bounds pending audit redeliveries (default: 256).
	AuditQueueSize int

	// Redis, when set, stores two-factor challenges instead of the
	// login_challenges table.
	Redis          redis.Cmdable
	RedisKeyPrefix string

	// CookieDomain scopes the access token cookie. InsecureCookie drops the
	// Secure flag for plain HTTP development setups.
	CookieDomain   string
	InsecureCookie bool

	// RateLimit throttles login and verify endpoints per client IP.
	RateLimit RateLimitConfig

	// SecurityHeaders overrides the default response security headers.
	SecurityHeaders SecurityHeadersConfig

	// MaxRequestBodySize caps request bodies (default: 1 MiB).
	MaxRequestBodySize int64

	// TrustedProxies lists peers allowed to set the client address through
	// X-Forwarded-For. Empty means rate limits and audit rows use the
	// socket peer.
	TrustedProxies []netip.Prefix

	// Logger for structured logging (default: JSON to stdout).
	Logger *slog.Logger
}

// RateLimitConfig configures per-IP request limits.
type RateLimitConfig struct {
	Disabled       bool
	LoginRequests  int
	VerifyRequests int
	Window         time.Duration
}

// SecurityHeadersConfig configures response security headers. Empty fields
// use the defaults.
type SecurityHeadersConfig struct {
	Disabled          bool
	CSP               string
	HSTSMaxAge        int
	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string
}

// Service wires both login surfaces to their stores.
type Service struct {
	recorder   *auth.AuditRecorder
	storefront *auth.Authenticator
	admin      *auth.Authenticator
	issuer     *session.Issuer
	router     http.Handler
}

// New creates the authentication service.
func New(cfg Config) (*Service, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validateSchema(context.Background(), cfg.DB, cfg.Redis == nil); err != nil {
		return nil, err
	}

	storefrontPolicy := auth.StorefrontPolicy()
	adminPolicy := auth.AdminPolicy()

	accounts := repository.NewAccountsRepository(cfg.DB)
	auditRepo := repository.NewAuditRepository(cfg.DB, storefrontPolicy.AuditTable, adminPolicy.AuditTable)

	var challenges auth.ChallengeStore
	if cfg.Redis != nil {
		challenges = cache.NewChallengeStore(cfg.Redis, cfg.RedisKeyPrefix)
	} else {
		challenges = repository.NewChallengesRepository(cfg.DB)
	}

	var box *auth.SecretBox
	if len(cfg.TwoFactorEncryptionKey) > 0 {
		var err error
		box, err = auth.NewSecretBox(cfg.TwoFactorEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("credauth: %w", err)
		}
	}
	totp := auth.NewTOTPVerifier(box)

	auditCfg := auth.DefaultAuditRecorderConfig()
	auditCfg.QueueSize = cfg.AuditQueueSize
	recorder := auth.NewAuditRecorder(auditRepo, auditCfg,
		auth.WithDropHook(metrics.RecordAuditDrop),
		auth.WithAuditLogger(cfg.Logger),
	)

	authCfg := auth.Config{
		MaxFailedAttempts:     cfg.MaxFailedAttempts,
		LockoutDuration:       cfg.LockoutDuration,
		ChallengeTTL:          cfg.ChallengeTTL,
		StrictEmailValidation: cfg.StrictEmailValidation,
		HashConcurrency:       cfg.HashConcurrency,
		DummyHashAlgorithm:    cfg.DummyHashAlgorithm,
		DummyBcryptCost:       cfg.DummyBcryptCost,
	}
	storefront := auth.NewAuthenticator(storefrontPolicy, authCfg, accounts, recorder, challenges, totp,
		auth.WithLogger(cfg.Logger))
	admin := auth.NewAuthenticator(adminPolicy, authCfg, accounts, recorder, challenges, totp,
		auth.WithLogger(cfg.Logger))

	issuer := session.NewIssuer(session.Config{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.AccessTokenTTL,
	})

	cookies := httputil.DefaultCookieConfig()
	cookies.Domain = cfg.CookieDomain
	cookies.Secure = !cfg.InsecureCookie

	s := &Service{
		recorder:   recorder,
		storefront: storefront,
		admin:      admin,
		issuer:     issuer,
	}
	s.router = httpserver.NewRouter(httpserver.RouterConfig{
		Logger:             cfg.Logger,
		Storefront:         login.NewHandler(cfg.Logger, storefront, issuer, cookies, cfg.DiscloseLockout),
		Admin:              login.NewHandler(cfg.Logger, admin, issuer, cookies, cfg.DiscloseLockout),
		RateLimitConfig:    rateLimitConfig(cfg.RateLimit),
		SecurityHeaders:    securityHeadersConfig(cfg.SecurityHeaders),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		TrustedProxies:     cfg.TrustedProxies,
	})

	return s, nil
}

// Router returns the HTTP handler serving:
//   - POST /v1/auth/login, POST /v1/auth/2fa/verify (storefront)
//   - POST /admin/v1/auth/login, POST /admin/v1/auth/2fa/verify (admin)
//   - GET /health, GET /metrics
func (s *Service) Router() http.Handler {
	return s.router
}

// Storefront returns the storefront authenticator for callers that do not
// go through HTTP.
func (s *Service) Storefront() *auth.Authenticator {
	return s.storefront
}

// Admin returns the admin authenticator.
func (s *Service) Admin() *auth.Authenticator {
	return s.admin
}

// ValidateToken checks an access token issued for surface.
func (s *Service) ValidateToken(token, surface string) (*session.Claims, error) {
	return s.issuer.Validate(token, surface)
}

// ErrUnauthenticated is returned by Authorize when the request carries no
// valid access token for the surface.
var ErrUnauthenticated = errors.New("credauth: request not authenticated")

// Authorize validates the access token carried by r (Authorization bearer
// header or access_token cookie) for surface:
//
//	claims, err := svc.Authorize(r, "admin")
func (s *Service) Authorize(r *http.Request, surface string) (*session.Claims, error) {
	token, ok := httputil.AccessToken(r)
	if !ok {
		return nil, ErrUnauthenticated
	}
	claims, err := s.ValidateToken(token, surface)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims, nil
}

// Close drains pending audit redeliveries. It does not close the DB.
func (s *Service) Close(ctx context.Context) error {
	return s.recorder.Close(ctx)
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("credauth: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("credauth: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("credauth: JWTSecret must be at least %d characters", minJWTSecretLength)
	}
	if n := len(cfg.TwoFactorEncryptionKey); n != 0 && n != 32 {
		return errors.New("credauth: TwoFactorEncryptionKey must be 32 bytes")
	}
	if cfg.MaxFailedAttempts < 0 {
		return errors.New("credauth: MaxFailedAttempts must not be negative")
	}
	switch cfg.DummyHashAlgorithm {
	case "", auth.HashArgon2id:
	case auth.HashBcrypt:
		if c := cfg.DummyBcryptCost; c != 0 && (c < bcrypt.MinCost || c > bcrypt.MaxCost) {
			return fmt.Errorf("credauth: DummyBcryptCost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return fmt.Errorf("credauth: unknown DummyHashAlgorithm %q", cfg.DummyHashAlgorithm)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "daily-fresh"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20
	}
	if cfg.RateLimit.LoginRequests <= 0 {
		cfg.RateLimit.LoginRequests = 10
	}
	if cfg.RateLimit.VerifyRequests <= 0 {
		cfg.RateLimit.VerifyRequests = 5
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.SecurityHeaders.CSP == "" {
		cfg.SecurityHeaders.CSP = "default-src 'none'; frame-ancestors 'none'"
	}
	if cfg.SecurityHeaders.HSTSMaxAge == 0 {
		cfg.SecurityHeaders.HSTSMaxAge = 31536000
	}
	if cfg.SecurityHeaders.FrameOptions == "" {
		cfg.SecurityHeaders.FrameOptions = "DENY"
	}
	if cfg.SecurityHeaders.ReferrerPolicy == "" {
		cfg.SecurityHeaders.ReferrerPolicy = "no-referrer"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

func rateLimitConfig(rl RateLimitConfig) config.RateLimitConfig {
	minutes := int(rl.Window / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return config.RateLimitConfig{
		Enabled:                 !rl.Disabled,
		LoginRequestsPerWindow:  rl.LoginRequests,
		LoginWindowMinutes:      minutes,
		VerifyRequestsPerWindow: rl.VerifyRequests,
		VerifyWindowMinutes:     minutes,
	}
}

func securityHeadersConfig(sh SecurityHeadersConfig) config.SecurityHeadersConfig {
	return config.SecurityHeadersConfig{
		Enabled:            !sh.Disabled,
		CSP:                sh.CSP,
		HSTSMaxAge:         sh.HSTSMaxAge,
		FrameOptions:       sh.FrameOptions,
		ContentTypeOptions: "nosniff",
		XSSProtection:      "0",
		ReferrerPolicy:     sh.ReferrerPolicy,
		PermissionsPolicy:  sh.PermissionsPolicy,
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(ctx context.Context, db *sql.DB, needChallenges bool) error {
	requiredTables := []string{"users", "audit_logs", "admin_audit_logs"}
	if needChallenges {
		requiredTables = append(requiredTables, "login_challenges")
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("credauth: missing table '%s' - run migrations first", table)
		}
		if err != nil {
			return fmt.Errorf("credauth: failed to check schema: %w", err)
		}
	}

	return nil
}
