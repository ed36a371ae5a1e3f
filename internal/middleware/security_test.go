package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func applySecureHeaders(t *testing.T, sh *SecureHeaders, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSecureHeaders_Defaults(t *testing.T) {
	rec := applySecureHeaders(t, DefaultSecureHeaders(), nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")

	assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=()")
}

func TestSecureHeaders_NoHSTSOnPlainHTTP(t *testing.T) {
	rec := applySecureHeaders(t, DefaultSecureHeaders(), nil)
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecureHeaders_HSTSOnTLS(t *testing.T) {
	rec := applySecureHeaders(t, DefaultSecureHeaders(), func(req *http.Request) {
		req.TLS = &tls.ConnectionState{}
	})

	hsts := rec.Header().Get("Strict-Transport-Security")
	assert.Contains(t, hsts, "max-age=63072000")
	assert.Contains(t, hsts, "includeSubDomains")
}

func TestSecureHeaders_CustomCSPWins(t *testing.T) {
	sh := DefaultSecureHeaders()
	sh.ContentSecurityPolicy = "default-src 'none'"

	rec := applySecureHeaders(t, sh, nil)
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))
}

func TestSecureHeaders_DevModeRelaxes(t *testing.T) {
	sh := DefaultSecureHeaders()
	sh.DevMode = true

	rec := applySecureHeaders(t, sh, nil)

	// Dev mode skips the default CSP and permissions policy entirely
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Empty(t, rec.Header().Get("Permissions-Policy"))

	// Non-policy headers stay on
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
