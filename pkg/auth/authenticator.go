package auth

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 30 * time.Minute

	maxPasswordLength = 1024
)

// AccountStore is the account persistence the authenticator needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// RecordFailedAttempt increments the failure counter and sets
	// lockout_until to lockUntil once the counter reaches maxAttempts,
	// returning the state after the write.
	RecordFailedAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (*domain.LockoutState, error)
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error
}

// AuditLogger records authentication events. *AuditRecorder implements it.
type AuditLogger interface {
	Record(ctx context.Context, table string, event *domain.AuditEvent) error
}

// Config holds lockout and validation settings.
type Config struct {
	MaxFailedAttempts     int
	LockoutDuration       time.Duration
	ChallengeTTL          time.Duration
	StrictEmailValidation bool
	// HashConcurrency caps simultaneous password verifications.
	HashConcurrency int64
	// DummyHashAlgorithm and DummyBcryptCost select the hash verified when
	// there is no real one. Set them to what most stored hashes use.
	DummyHashAlgorithm string
	DummyBcryptCost    int
}

func (c *Config) applyDefaults() {
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = DefaultLockoutDuration
	}
	if c.ChallengeTTL <= 0 {
		c.ChallengeTTL = DefaultChallengeTTL
	}
	if c.HashConcurrency <= 0 {
		c.HashConcurrency = int64(runtime.GOMAXPROCS(0))
	}
	if c.DummyHashAlgorithm == "" {
		c.DummyHashAlgorithm = HashArgon2id
	}
	if c.DummyBcryptCost == 0 {
		c.DummyBcryptCost = bcrypt.DefaultCost
	}
}

// LoginRequest is one credential submission.
type LoginRequest struct {
	Email         string
	Password      string
	TwoFactorCode string
	ClientIP      string
	UserAgent     string
}

// ChallengeRequest completes a login that returned OutcomeTwoFactorRequired.
type ChallengeRequest struct {
	Token     string
	Code      string
	ClientIP  string
	UserAgent string
}

// Authenticator decides login attempts for one surface and keeps the
// account's lockout state and audit trail in step with each decision.
type Authenticator struct {
	policy     Policy
	cfg        Config
	accounts   AccountStore
	audit      AuditLogger
	challenges ChallengeStore
	totp       *TOTPVerifier
	logger     *slog.Logger
	now        func() time.Time
	hashSem    *semaphore.Weighted
	dummyHash  string
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the authenticator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = logger }
}

// NewAuthenticator creates an authenticator for policy.
func NewAuthenticator(
	policy Policy,
	cfg Config,
	accounts AccountStore,
	audit AuditLogger,
	challenges ChallengeStore,
	totp *TOTPVerifier,
	opts ...Option,
) *Authenticator {
	cfg.applyDefaults()
	if totp == nil {
		totp = NewTOTPVerifier(nil)
	}

	a := &Authenticator{
		policy:     policy,
		cfg:        cfg,
		accounts:   accounts,
		audit:      audit,
		challenges: challenges,
		totp:       totp,
		logger:     slog.Default(),
		now:        time.Now,
		hashSem:    semaphore.NewWeighted(cfg.HashConcurrency),
	}
	for _, opt := range opts {
		opt(a)
	}

	dummy, err := NewDummyHash(cfg.DummyHashAlgorithm, cfg.DummyBcryptCost)
	if err != nil {
		a.logger.Warn("falling back to argon2id dummy hash", "error", err)
		dummy = dummyHash
	}
	a.dummyHash = dummy
	a.logger = a.logger.With("surface", policy.Surface)
	return a
}

// Policy returns the surface policy the authenticator was built with.
func (a *Authenticator) Policy() Policy {
	return a.policy
}

// Authenticate checks an email/password pair, and the TOTP code when the
// account has two-factor enabled. Credential failures are reported as an
// Outcome; the error is reserved for invalid input and infrastructure faults.
func (a *Authenticator) Authenticate(ctx context.Context, req LoginRequest) (*Outcome, error) {
	email, err := a.validate(req)
	if err != nil {
		return nil, err
	}

	account, err := a.accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return a.notFound(ctx, req.Password)
	}
	if err != nil {
		return nil, &InfrastructureError{Op: "lookup account", Err: err}
	}
	if !account.HasPassword() {
		return a.notFound(ctx, req.Password)
	}

	now := a.now()
	if account.IsLocked(now) {
		// Burn the same hash work as a wrong password without touching the
		// real hash. Locked attempts do not extend the lockout.
		if _, err := a.verifyPassword(ctx, req.Password, a.dummyHash); err != nil {
			return nil, err
		}
		a.logger.Info("login rejected: account locked", "user_id", account.ID)
		return &Outcome{Kind: OutcomeAccountLocked, LockoutUntil: account.LockoutUntil}, nil
	}

	ok, err := a.verifyPassword(ctx, req.Password, *account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return a.fail(ctx, account, OutcomeInvalidPassword, req.ClientIP, req.UserAgent, now), nil
	}

	if !account.TwoFactorEnabled {
		return a.succeed(ctx, account, req.ClientIP, req.UserAgent, now), nil
	}
	if !account.HasTwoFactorSecret() {
		// A challenge could never be redeemed, so fail before minting one.
		return nil, &InfrastructureError{Op: "verify two-factor code", Err: domain.ErrMFANotConfigured}
	}
	if req.TwoFactorCode == "" {
		return a.challenge(ctx, account, now)
	}
	return a.secondFactor(ctx, account, req.TwoFactorCode, req.ClientIP, req.UserAgent, now)
}

// VerifyChallenge completes a two-factor login using the token issued by
// Authenticate. The password is not re-submitted. A token is redeemed at
// most once and only on the surface that issued it.
func (a *Authenticator) VerifyChallenge(ctx context.Context, req ChallengeRequest) (*Outcome, error) {
	if req.Token == "" {
		return nil, &ValidationError{Field: "challenge_token", Err: domain.ErrTokenRequired}
	}
	if req.Code == "" {
		return nil, &ValidationError{Field: "code", Err: domain.ErrCodeRequired}
	}
	if a.challenges == nil {
		return nil, domain.ErrChallengeExpired
	}

	tokenHash := HashToken(req.Token)
	challenge, err := a.challenges.GetByTokenHash(ctx, tokenHash)
	if errors.Is(err, domain.ErrChallengeNotFound) {
		return nil, domain.ErrChallengeExpired
	}
	if err != nil {
		return nil, &InfrastructureError{Op: "lookup challenge", Err: err}
	}

	now := a.now()
	if !challenge.IsValid(now) || challenge.Surface != a.policy.Surface {
		return nil, domain.ErrChallengeExpired
	}

	account, err := a.accounts.GetByID(ctx, challenge.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrChallengeExpired
	}
	if err != nil {
		return nil, &InfrastructureError{Op: "lookup account", Err: err}
	}
	if !account.TwoFactorEnabled {
		return nil, domain.ErrChallengeExpired
	}
	if account.IsLocked(now) {
		return &Outcome{Kind: OutcomeAccountLocked, LockoutUntil: account.LockoutUntil}, nil
	}

	valid, err := a.totp.Verify(account, req.Code, now)
	if err != nil {
		return nil, &InfrastructureError{Op: "verify two-factor code", Err: err}
	}
	if !valid {
		return a.fail(ctx, account, OutcomeInvalidTwoFactorCode, req.ClientIP, req.UserAgent, now), nil
	}

	if err := a.challenges.Consume(ctx, tokenHash, now); err != nil {
		if errors.Is(err, domain.ErrChallengeExpired) {
			return nil, err
		}
		return nil, &InfrastructureError{Op: "consume challenge", Err: err}
	}

	return a.succeed(ctx, account, req.ClientIP, req.UserAgent, now), nil
}

func (a *Authenticator) validate(req LoginRequest) (string, error) {
	if err := ValidateEmail(req.Email, a.cfg.StrictEmailValidation); err != nil {
		return "", &ValidationError{Field: "email", Err: err}
	}
	if req.Password == "" {
		return "", &ValidationError{Field: "password", Err: domain.ErrPasswordRequired}
	}
	if len(req.Password) > maxPasswordLength {
		return "", &ValidationError{Field: "password", Err: domain.ErrPasswordTooLong}
	}
	return NormalizeEmail(req.Email), nil
}

func (a *Authenticator) notFound(ctx context.Context, password string) (*Outcome, error) {
	if _, err := a.verifyPassword(ctx, password, a.dummyHash); err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeAccountNotFound}, nil
}

func (a *Authenticator) verifyPassword(ctx context.Context, password, hash string) (bool, error) {
	if err := a.hashSem.Acquire(ctx, 1); err != nil {
		return false, &InfrastructureError{Op: "acquire hash slot", Err: err}
	}
	defer a.hashSem.Release(1)

	return VerifyPassword(password, hash), nil
}

func (a *Authenticator) secondFactor(ctx context.Context, account *domain.Account, code, ip, userAgent string, now time.Time) (*Outcome, error) {
	valid, err := a.totp.Verify(account, code, now)
	if err != nil {
		return nil, &InfrastructureError{Op: "verify two-factor code", Err: err}
	}
	if !valid {
		return a.fail(ctx, account, OutcomeInvalidTwoFactorCode, ip, userAgent, now), nil
	}
	return a.succeed(ctx, account, ip, userAgent, now), nil
}

func (a *Authenticator) challenge(ctx context.Context, account *domain.Account, now time.Time) (*Outcome, error) {
	if a.challenges == nil {
		return nil, &InfrastructureError{Op: "create challenge", Err: errors.New("no challenge store configured")}
	}

	token, err := generateToken(challengeTokenLen)
	if err != nil {
		return nil, &InfrastructureError{Op: "generate challenge token", Err: err}
	}

	c := &domain.Challenge{
		ID:        uuid.New(),
		AccountID: account.ID,
		TokenHash: HashToken(token),
		Surface:   a.policy.Surface,
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.ChallengeTTL),
	}
	if err := a.challenges.Create(ctx, c); err != nil {
		return nil, &InfrastructureError{Op: "create challenge", Err: err}
	}

	return &Outcome{
		Kind:      OutcomeTwoFactorRequired,
		Challenge: &ChallengeToken{Token: token, ExpiresAt: c.ExpiresAt},
	}, nil
}

func (a *Authenticator) fail(ctx context.Context, account *domain.Account, kind OutcomeKind, ip, userAgent string, now time.Time) *Outcome {
	var state *domain.LockoutState
	lockUntil := now.Add(a.cfg.LockoutDuration)

	a.bookkeep(ctx, account, domain.AuditLoginFailed, ip, userAgent, now, func(ctx context.Context) error {
		s, err := a.accounts.RecordFailedAttempt(ctx, account.ID, a.cfg.MaxFailedAttempts, lockUntil)
		state = s
		return err
	})

	out := &Outcome{Kind: kind}
	if state != nil && state.LockoutUntil != nil && state.LockoutUntil.After(now) {
		out.LockoutUntil = state.LockoutUntil
		a.logger.Warn("account locked",
			"user_id", account.ID,
			"failed_attempts", state.FailedLoginAttempts,
			"lockout_until", *state.LockoutUntil,
		)
	} else {
		a.logger.Info("login failed", "user_id", account.ID, "outcome", kind.String())
	}
	return out
}

func (a *Authenticator) succeed(ctx context.Context, account *domain.Account, ip, userAgent string, now time.Time) *Outcome {
	a.bookkeep(ctx, account, domain.AuditLoginSuccess, ip, userAgent, now, func(ctx context.Context) error {
		return a.accounts.ResetFailedAttempts(ctx, account.ID)
	})

	a.logger.Info("login succeeded", "user_id", account.ID, "role", account.Role)
	return &Outcome{Kind: OutcomeSuccess, Account: account.Public()}
}

// bookkeep runs the counter write and the audit append concurrently and
// waits for both. Failures are logged and never change the decision.
// The writes outlive a cancelled request.
func (a *Authenticator) bookkeep(
	ctx context.Context,
	account *domain.Account,
	action domain.AuditAction,
	ip, userAgent string,
	now time.Time,
	write func(ctx context.Context) error,
) {
	ctx = context.WithoutCancel(ctx)
	event := &domain.AuditEvent{
		UserID:    account.ID,
		Action:    action,
		Timestamp: now,
		IPAddress: ip,
		UserAgent: userAgent,
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := write(ctx); err != nil {
			a.logger.Error("failed to update login counters", "user_id", account.ID, "error", err)
			return err
		}
		return nil
	})
	if a.audit != nil {
		g.Go(func() error {
			if err := a.audit.Record(ctx, a.policy.AuditTable, event); err != nil {
				a.logger.Warn("audit append failed, retrying in background",
					"user_id", account.ID,
					"action", action,
					"error", err,
				)
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}
