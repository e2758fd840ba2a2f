package session

import (
	"errors"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid or expired token")

// Config holds access token settings.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Claims are the claims carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email   string      `json:"email,omitempty"`
	Role    domain.Role `json:"role"`
	Surface string      `json:"surface"`
}

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	TTL         time.Duration
}

// Issuer signs HS256 access tokens for authenticated accounts.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer creates an issuer.
func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

// Issue signs an access token for account on surface.
func (i *Issuer) Issue(account *domain.Account, surface string) (*Token, error) {
	now := i.now()
	expiresAt := now.Add(i.cfg.TTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{surface},
			ID:        uuid.NewString(),
		},
		Email:   account.Email,
		Role:    account.Role,
		Surface: surface,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: signed, ExpiresAt: expiresAt, TTL: i.cfg.TTL}, nil
}

// Validate parses a token issued for surface and returns its claims.
func (i *Issuer) Validate(tokenString, surface string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.cfg.Secret, nil
	},
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(surface),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
