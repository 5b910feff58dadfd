package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/mcp-guard/security"
)

func newTestGuard(t *testing.T, cfg Config) *Guard {
	t.Helper()

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(g.Stop)
	return g
}

func TestNew_Defaults(t *testing.T) {
	g := newTestGuard(t, DefaultConfig())

	report := g.GenerateReport()
	if report.Config.Window != security.DefaultWindow.String() {
		t.Errorf("Window = %q, want %q", report.Config.Window, security.DefaultWindow.String())
	}
	if report.Config.MaxRequests != security.DefaultMaxRequests {
		t.Errorf("MaxRequests = %d, want %d", report.Config.MaxRequests, security.DefaultMaxRequests)
	}
	if !report.Config.EncryptionConfigured {
		t.Error("default config should generate an ephemeral encryption key")
	}
	if !report.Config.AuditLoggingEnabled {
		t.Error("default config should enable audit logging")
	}
	if report.Config.GlobalThrottleEnabled {
		t.Error("global throttle should be off by default")
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "wrong key size",
			cfg:  Config{Encryption: EncryptionConfig{Key: make([]byte, 16)}},
		},
		{
			name: "key and passphrase together",
			cfg: Config{Encryption: EncryptionConfig{
				Key:        make([]byte, 32),
				Passphrase: "secret",
			}},
		},
		{
			name: "negative window",
			cfg:  Config{RateLimit: RateLimitConfig{Window: -time.Minute}},
		},
		{
			name: "negative quota",
			cfg:  Config{RateLimit: RateLimitConfig{MaxRequests: -1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !security.IsConfigurationError(err) {
				t.Errorf("New() error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestAdmit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.MaxRequests = 2
	g := newTestGuard(t, cfg)
	ctx := context.Background()

	params := map[string]any{"query": "<script>x</script>status"}

	decision, sanitized := g.Admit(ctx, "caller", params)
	if !decision.Allowed {
		t.Fatal("first request should be admitted")
	}
	if decision.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", decision.Remaining)
	}

	record, ok := sanitized.(map[string]any)
	if !ok {
		t.Fatal("sanitized params should stay a map")
	}
	if record["query"] != "status" {
		t.Errorf(`sanitized["query"] = %v, want "status"`, record["query"])
	}
}

func TestAdmit_QuotaAndEscalation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.MaxRequests = 1
	cfg.RateLimit.BlockThreshold = 2
	g := newTestGuard(t, cfg)
	ctx := context.Background()

	decision, _ := g.Admit(ctx, "caller", nil)
	if !decision.Allowed {
		t.Fatal("request within quota should be admitted")
	}
	if g.IsSuspicious("caller") {
		t.Fatal("identifier should not be suspicious before any violation")
	}

	decision, _ = g.Admit(ctx, "caller", nil)
	if decision.Allowed {
		t.Fatal("request over quota should be rejected")
	}
	if decision.RetryAfterSeconds() <= 0 {
		t.Error("rejection should carry positive retry timing")
	}
	if !g.IsSuspicious("caller") {
		t.Error("violating identifier should be flagged suspicious")
	}

	g.Admit(ctx, "caller", nil)

	report := g.GenerateReport()
	if report.RateLimiting.SuspiciousIdentifiers != 1 {
		t.Errorf("SuspiciousIdentifiers = %d, want 1", report.RateLimiting.SuspiciousIdentifiers)
	}
	if report.Events[security.EventRateLimitViolation] != 2 {
		t.Errorf("violation events = %d, want 2", report.Events[security.EventRateLimitViolation])
	}
	if report.Events[security.EventIdentifierBlocked] != 1 {
		t.Errorf("blocked events = %d, want 1", report.Events[security.EventIdentifierBlocked])
	}
}

func TestAdmit_GlobalThrottle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.GlobalRate = 1
	cfg.RateLimit.GlobalBurst = 1
	g := newTestGuard(t, cfg)
	ctx := context.Background()

	first, _ := g.Admit(ctx, "a", nil)
	if !first.Allowed {
		t.Fatal("first request should pass the throttle burst")
	}

	second, _ := g.Admit(ctx, "b", nil)
	if second.Allowed {
		t.Fatal("second immediate request should hit the global throttle")
	}
	if second.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", second.RetryAfter)
	}
	if g.GenerateReport().Events[security.EventGlobalThrottle] != 1 {
		t.Error("global throttle rejection should be audited")
	}
}

func TestGuard_EncryptDecrypt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Encryption = EncryptionConfig{Passphrase: "unit test passphrase", Salt: []byte("salt")}
	g := newTestGuard(t, cfg)
	ctx := context.Background()

	payload, err := g.Encrypt(ctx, "monitoring credentials")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	plaintext, err := g.Decrypt(ctx, payload)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if plaintext != "monitoring credentials" {
		t.Errorf("Decrypt() = %q, want original plaintext", plaintext)
	}

	payload.Tag[0] ^= 0x01
	if _, err := g.Decrypt(ctx, payload); !security.IsAuthenticationError(err) {
		t.Errorf("Decrypt(tampered) error = %v, want AuthenticationError", err)
	}
	if g.GenerateReport().Events[security.EventDecryptFailed] != 1 {
		t.Error("failed decryption should be audited")
	}
}

func TestGuard_EncryptionDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Encryption = EncryptionConfig{GenerateIfMissing: false}
	g := newTestGuard(t, cfg)

	if g.GenerateReport().Config.EncryptionConfigured {
		t.Error("encryption should be unconfigured without key material")
	}
	if _, err := g.Encrypt(context.Background(), "x"); !security.IsConfigurationError(err) {
		t.Errorf("Encrypt() error = %v, want ConfigurationError", err)
	}
}

func TestGuard_ValidateAPIKey(t *testing.T) {
	g := newTestGuard(t, DefaultConfig())
	ctx := context.Background()

	result := g.ValidateAPIKey(ctx, strings.Repeat("a", 32))
	if result.Valid {
		t.Error("zero-entropy key should be invalid")
	}
	if g.GenerateReport().Events[security.EventWeakCredential] != 1 {
		t.Error("weak credential should be audited")
	}

	result = g.ValidateAPIKey(ctx, "abcdefghijklmnopqrstuvwxyz012345")
	if !result.Valid {
		t.Errorf("expected valid, got issues %v", result.Issues)
	}
}

func TestGuard_ShouldRotate(t *testing.T) {
	g := newTestGuard(t, DefaultConfig())
	ctx := context.Background()

	if !g.ShouldRotate(ctx, time.Time{}) {
		t.Error("never-rotated credential should be due")
	}
	if g.ShouldRotate(ctx, time.Now()) {
		t.Error("freshly rotated credential should not be due")
	}
	if g.GenerateReport().Events[security.EventKeyRotationDue] != 1 {
		t.Error("due rotation should be audited")
	}
}

func TestGuard_Middleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.MaxRequests = 1
	g := newTestGuard(t, cfg)

	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "203.0.113.7:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get(security.RequestIDHeader) == "" {
		t.Error("response should carry a request ID")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
}

func TestGuard_MiddlewareBearerIdentity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.MaxRequests = 1
	g := newTestGuard(t, cfg)

	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Same source address, distinct bearer tokens: each token gets its own
	// quota bucket.
	for _, token := range []string{"token-one", "token-two"} {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status for %s = %d, want 200", token, rec.Code)
		}
	}
}

func TestGuard_PreservesUpstreamRequestID(t *testing.T) {
	g := newTestGuard(t, DefaultConfig())

	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(security.RequestIDHeader, "upstream-id-42")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(security.RequestIDHeader); got != "upstream-id-42" {
		t.Errorf("request ID = %q, want upstream value preserved", got)
	}
}

func TestGuard_LimiterStats(t *testing.T) {
	g := newTestGuard(t, DefaultConfig())
	ctx := context.Background()

	g.CheckRateLimit(ctx, "a")
	g.CheckRateLimit(ctx, "b")

	stats := g.LimiterStats()
	if stats.CurrentEntries != 2 {
		t.Errorf("CurrentEntries = %d, want 2", stats.CurrentEntries)
	}
}
