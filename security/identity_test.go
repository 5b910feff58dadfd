package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCallerFromAPIKey(t *testing.T) {
	id := CallerFromAPIKey("sk-some-secret-key")

	if !strings.HasPrefix(id, "key:") {
		t.Errorf("identifier = %q, want key: prefix", id)
	}
	if strings.Contains(id, "secret") {
		t.Error("identifier must not contain key material")
	}
	if id != CallerFromAPIKey("sk-some-secret-key") {
		t.Error("identifier must be stable for the same key")
	}
	if id == CallerFromAPIKey("sk-other-key") {
		t.Error("distinct keys should map to distinct identifiers")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name              string
		remoteAddr        string
		forwardedFor      string
		realIP            string
		trustProxy        bool
		trustedProxyCount int
		want              string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:1234",
			want:       "203.0.113.7",
		},
		{
			name:         "untrusted proxy headers ignored",
			remoteAddr:   "203.0.113.7:1234",
			forwardedFor: "198.51.100.1",
			want:         "203.0.113.7",
		},
		{
			name:         "trusted single proxy",
			remoteAddr:   "10.0.0.1:1234",
			forwardedFor: "198.51.100.1, 10.0.0.1",
			trustProxy:   true,
			want:         "198.51.100.1",
		},
		{
			name:              "trusted proxy chain",
			remoteAddr:        "10.0.0.1:1234",
			forwardedFor:      "198.51.100.1, 10.0.0.2, 10.0.0.1",
			trustProxy:        true,
			trustedProxyCount: 2,
			want:              "198.51.100.1",
		},
		{
			name:       "real ip fallback",
			remoteAddr: "10.0.0.1:1234",
			realIP:     "198.51.100.1",
			trustProxy: true,
			want:       "198.51.100.1",
		},
		{
			name:         "malformed forwarded-for falls through",
			remoteAddr:   "10.0.0.1:1234",
			forwardedFor: "not-an-ip",
			trustProxy:   true,
			want:         "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwardedFor != "" {
				r.Header.Set("X-Forwarded-For", tt.forwardedFor)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := GetClientIP(r, tt.trustProxy, tt.trustedProxyCount); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
