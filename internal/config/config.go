package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLength = 32

// Challenge store backends.
const (
	ChallengeStorePostgres = "postgres"
	ChallengeStoreRedis    = "redis"
)

// Dummy hash algorithms. Match the one most stored password hashes use.
const (
	DummyHashArgon2id = "argon2id"
	DummyHashBcrypt   = "bcrypt"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr         string
	ServerPort         int
	MaxRequestBodySize int64
	// TrustedProxies are peers whose X-Forwarded-For is believed. Empty
	// means the socket peer is always the client.
	TrustedProxies []netip.Prefix

	// Database
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// JWT
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	// Cookies
	CookieSecure bool
	CookieDomain string

	// Authentication
	TwoFactorEncryptionKey []byte
	DiscloseLockout        bool
	StrictEmailValidation  bool
	HashConcurrency        int64
	AuditQueueSize         int
	ChallengeStore         string
	DummyHashAlgorithm     string
	DummyBcryptCost        int

	Lockout         LockoutConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Redis           RedisConfig
}

// LockoutConfig controls the failed-attempt threshold.
type LockoutConfig struct {
	MaxFailedAttempts int
	Duration          time.Duration
	ChallengeTTL      time.Duration
}

// RateLimitConfig holds per-IP rate limits for the login endpoints.
type RateLimitConfig struct {
	Enabled bool

	LoginRequestsPerWindow int
	LoginWindowMinutes     int

	VerifyRequestsPerWindow int
	VerifyWindowMinutes     int
}

// SecurityHeadersConfig holds response security header values.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RedisConfig holds connection settings for the Redis challenge store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	TLS       bool
	KeyPrefix string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr:         getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort:         getEnvInt("SERVER_PORT", 8080),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),

		// Database defaults
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 5432),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "daily_fresh"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		// JWT defaults
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "daily-fresh"),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		CookieSecure: getEnvBool("COOKIE_SECURE", true),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),

		DiscloseLockout:       getEnvBool("DISCLOSE_LOCKOUT", false),
		StrictEmailValidation: getEnvBool("STRICT_EMAIL_VALIDATION", false),
		HashConcurrency:       int64(getEnvInt("HASH_CONCURRENCY", 0)),
		AuditQueueSize:        getEnvInt("AUDIT_QUEUE_SIZE", 256),
		ChallengeStore:        strings.ToLower(getEnv("CHALLENGE_STORE", ChallengeStorePostgres)),
		DummyHashAlgorithm:    strings.ToLower(getEnv("DUMMY_HASH_ALGORITHM", DummyHashArgon2id)),
		DummyBcryptCost:       getEnvInt("DUMMY_HASH_BCRYPT_COST", 10),

		Lockout: LockoutConfig{
			MaxFailedAttempts: getEnvInt("LOCKOUT_MAX_ATTEMPTS", 5),
			Duration:          getEnvDuration("LOCKOUT_DURATION", 30*time.Minute),
			ChallengeTTL:      getEnvDuration("CHALLENGE_TTL", 5*time.Minute),
		},

		RateLimit: RateLimitConfig{
			Enabled:                 getEnvBool("RATE_LIMIT_ENABLED", true),
			LoginRequestsPerWindow:  getEnvInt("RATE_LIMIT_LOGIN_REQUESTS", 10),
			LoginWindowMinutes:      getEnvInt("RATE_LIMIT_LOGIN_WINDOW_MINUTES", 1),
			VerifyRequestsPerWindow: getEnvInt("RATE_LIMIT_VERIFY_REQUESTS", 5),
			VerifyWindowMinutes:     getEnvInt("RATE_LIMIT_VERIFY_WINDOW_MINUTES", 1),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:           getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:               getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:        getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:      getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ReferrerPolicy:    getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy: getEnv("SECURITY_PERMISSIONS_POLICY", ""),
		},

		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			TLS:       getEnvBool("REDIS_TLS", false),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "dailyfresh:challenge:"),
		},
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}

	if raw := getEnv("TWO_FACTOR_ENCRYPTION_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return nil, errors.New("TWO_FACTOR_ENCRYPTION_KEY must be 64-char hex (32 bytes)")
		}
		cfg.TwoFactorEncryptionKey = key
	}

	switch cfg.ChallengeStore {
	case ChallengeStorePostgres, ChallengeStoreRedis:
	default:
		return nil, fmt.Errorf("CHALLENGE_STORE must be %q or %q, got %q",
			ChallengeStorePostgres, ChallengeStoreRedis, cfg.ChallengeStore)
	}

	if cfg.Lockout.MaxFailedAttempts < 1 {
		return nil, errors.New("LOCKOUT_MAX_ATTEMPTS must be at least 1")
	}

	switch cfg.DummyHashAlgorithm {
	case DummyHashArgon2id:
	case DummyHashBcrypt:
		if cfg.DummyBcryptCost < 4 || cfg.DummyBcryptCost > 31 {
			return nil, errors.New("DUMMY_HASH_BCRYPT_COST must be between 4 and 31")
		}
	default:
		return nil, fmt.Errorf("DUMMY_HASH_ALGORITHM must be %q or %q, got %q",
			DummyHashArgon2id, DummyHashBcrypt, cfg.DummyHashAlgorithm)
	}

	proxies, err := ParseTrustedProxies(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	return cfg, nil
}

// HasTwoFactorEncryption returns true if stored TOTP secrets are encrypted.
func (c *Config) HasTwoFactorEncryption() bool {
	return len(c.TwoFactorEncryptionKey) > 0
}

// UsesRedis returns true if challenges are kept in Redis.
func (c *Config) UsesRedis() bool {
	return c.ChallengeStore == ChallengeStoreRedis
}

// ParseTrustedProxies parses a comma-separated list of CIDRs or bare IPs.
func ParseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid CIDR %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
