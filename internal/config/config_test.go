package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-that-is-32-chars!"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	// Clear any other env vars that might interfere
	envVars := []string{
		"SERVER_ADDR", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_SSLMODE",
		"LOCKOUT_MAX_ATTEMPTS", "LOCKOUT_DURATION", "CHALLENGE_TTL", "CHALLENGE_STORE",
		"DISCLOSE_LOCKOUT", "TWO_FACTOR_ENCRYPTION_KEY", "RATE_LIMIT_ENABLED",
		"TRUSTED_PROXIES", "DUMMY_HASH_ALGORITHM", "DUMMY_HASH_BCRYPT_COST",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Check defaults
	if cfg.ServerAddr != "0.0.0.0" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, "0.0.0.0")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, want %q", cfg.DBHost, "localhost")
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, want %d", cfg.DBPort, 5432)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want %v", cfg.AccessTokenTTL, 15*time.Minute)
	}
	if cfg.Lockout.MaxFailedAttempts != 5 {
		t.Errorf("Lockout.MaxFailedAttempts = %d, want 5", cfg.Lockout.MaxFailedAttempts)
	}
	if cfg.Lockout.Duration != 30*time.Minute {
		t.Errorf("Lockout.Duration = %v, want 30m", cfg.Lockout.Duration)
	}
	if cfg.Lockout.ChallengeTTL != 5*time.Minute {
		t.Errorf("Lockout.ChallengeTTL = %v, want 5m", cfg.Lockout.ChallengeTTL)
	}
	if cfg.DiscloseLockout {
		t.Error("DiscloseLockout should default to false")
	}
	if cfg.HasTwoFactorEncryption() {
		t.Error("two-factor encryption should be off without a key")
	}
	if cfg.UsesRedis() {
		t.Error("challenge store should default to postgres")
	}
	if !cfg.RateLimit.Enabled || !cfg.SecurityHeaders.Enabled || !cfg.CookieSecure {
		t.Error("rate limiting, security headers and secure cookies should default on")
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Errorf("TrustedProxies = %v, want none", cfg.TrustedProxies)
	}
	if cfg.DummyHashAlgorithm != DummyHashArgon2id {
		t.Errorf("DummyHashAlgorithm = %q, want %q", cfg.DummyHashAlgorithm, DummyHashArgon2id)
	}
}

func TestLoad_JWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr string
	}{
		{name: "missing", secret: "", wantErr: "JWT_SECRET is required"},
		{name: "too short", secret: "short", wantErr: "at least 32"},
		{name: "ok", secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)

			_, err := Load()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.example.com")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("LOCKOUT_MAX_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_DURATION", "1h")
	t.Setenv("DISCLOSE_LOCKOUT", "true")
	t.Setenv("CHALLENGE_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")
	t.Setenv("DUMMY_HASH_ALGORITHM", "bcrypt")
	t.Setenv("DUMMY_HASH_BCRYPT_COST", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.DBHost != "db.example.com" {
		t.Errorf("DBHost = %q, want %q", cfg.DBHost, "db.example.com")
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want %v", cfg.AccessTokenTTL, 30*time.Minute)
	}
	if cfg.Lockout.MaxFailedAttempts != 3 || cfg.Lockout.Duration != time.Hour {
		t.Errorf("Lockout = %+v", cfg.Lockout)
	}
	if !cfg.DiscloseLockout {
		t.Error("DiscloseLockout should be true")
	}
	if !cfg.UsesRedis() || cfg.Redis.Addr != "cache:6380" {
		t.Errorf("expected redis challenge store at cache:6380, got %q %q", cfg.ChallengeStore, cfg.Redis.Addr)
	}
	if len(cfg.TrustedProxies) != 2 {
		t.Errorf("TrustedProxies = %v, want 2 entries", cfg.TrustedProxies)
	}
	if cfg.DummyHashAlgorithm != DummyHashBcrypt || cfg.DummyBcryptCost != 12 {
		t.Errorf("dummy hash = %q cost %d, want bcrypt cost 12", cfg.DummyHashAlgorithm, cfg.DummyBcryptCost)
	}
}

func TestLoad_TwoFactorEncryptionKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid", key: strings.Repeat("ab", 32), wantErr: false},
		{name: "not hex", key: strings.Repeat("zz", 32), wantErr: true},
		{name: "too short", key: "abcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			t.Setenv("TWO_FACTOR_ENCRYPTION_KEY", tt.key)

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(cfg.TwoFactorEncryptionKey) != 32 {
				t.Errorf("key length = %d, want 32", len(cfg.TwoFactorEncryptionKey))
			}
		})
	}
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown challenge store", key: "CHALLENGE_STORE", value: "memcached"},
		{name: "zero lockout threshold", key: "LOCKOUT_MAX_ATTEMPTS", value: "0"},
		{name: "unknown dummy hash", key: "DUMMY_HASH_ALGORITHM", value: "md5"},
		{name: "bad trusted proxy", key: "TRUSTED_PROXIES", value: "10.0.0.0/8,not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load should fail with %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "cidr", raw: "10.1.2.3/8", want: []string{"10.0.0.0/8"}},
		{name: "bare ipv4", raw: "192.0.2.10", want: []string{"192.0.2.10/32"}},
		{name: "bare ipv6", raw: "2001:db8::1", want: []string{"2001:db8::1/128"}},
		{name: "list with spaces", raw: " 10.0.0.0/8 , ,172.16.0.1 ", want: []string{"10.0.0.0/8", "172.16.0.1/32"}},
		{name: "bad cidr", raw: "10.0.0.0/40", wantErr: true},
		{name: "bad address", raw: "proxy.internal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTrustedProxies(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTrustedProxies(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTrustedProxies: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i, p := range got {
				if p.String() != tt.want[i] {
					t.Errorf("prefix[%d] = %s, want %s", i, p, tt.want[i])
				}
			}
		})
	}
}

func TestGetEnvInt_InvalidValue(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")

	result := getEnvInt("TEST_INT", 42)
	if result != 42 {
		t.Errorf("getEnvInt should return default for invalid value, got %d", result)
	}
}

func TestGetEnvBool_InvalidValue(t *testing.T) {
	t.Setenv("TEST_BOOL", "maybe")

	if !getEnvBool("TEST_BOOL", true) {
		t.Error("getEnvBool should return default for invalid value")
	}
}

func TestGetEnvDuration_InvalidValue(t *testing.T) {
	t.Setenv("TEST_DURATION", "invalid")

	result := getEnvDuration("TEST_DURATION", 5*time.Minute)
	if result != 5*time.Minute {
		t.Errorf("getEnvDuration should return default for invalid value, got %v", result)
	}
}
