package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Asiful600w/Daily-Fresh-sub001/internal/config"
)

func headersFor(cfg config.SecurityHeadersConfig) http.Header {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	w := httptest.NewRecorder()
	SecurityHeaders(cfg)(okHandler()).ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	cfg := config.SecurityHeadersConfig{
		Enabled:            true,
		CSP:                "default-src 'none'",
		HSTSMaxAge:         31536000,
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		XSSProtection:      "0",
		ReferrerPolicy:     "no-referrer",
		PermissionsPolicy:  "geolocation=()",
	}
	h := headersFor(cfg)

	want := map[string]string{
		"Content-Security-Policy":   cfg.CSP,
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Frame-Options":           cfg.FrameOptions,
		"X-Content-Type-Options":    cfg.ContentTypeOptions,
		"X-XSS-Protection":          cfg.XSSProtection,
		"Referrer-Policy":           cfg.ReferrerPolicy,
		"Permissions-Policy":        cfg.PermissionsPolicy,
	}
	for name, value := range want {
		if got := h.Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestSecurityHeaders_Disabled(t *testing.T) {
	h := headersFor(config.SecurityHeadersConfig{Enabled: false, CSP: "default-src 'self'"})

	if got := h.Get("Content-Security-Policy"); got != "" {
		t.Errorf("CSP header should not be set when disabled, got %v", got)
	}
}

func TestSecurityHeaders_EmptyValues(t *testing.T) {
	h := headersFor(config.SecurityHeadersConfig{Enabled: true, ContentTypeOptions: "nosniff"})

	for _, name := range []string{"Content-Security-Policy", "Strict-Transport-Security", "X-Frame-Options"} {
		if _, ok := h[name]; ok {
			t.Errorf("%s should not be set when empty", name)
		}
	}
	if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
