package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"social-coordination/internal/platform/logger"
	"social-coordination/internal/ports/auth"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	uid, ok := s[token]
	if !ok {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return auth.Claims{UserID: uid}, nil
}

func whoami(w http.ResponseWriter, r *http.Request) {
	c, ok := GetClaims(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_, _ = w.Write([]byte(c.UserID))
}

func TestAuthContext(t *testing.T) {
	cases := []struct {
		name     string
		verifier auth.AuthVerifier
		header   string
		value    string
		want     string
	}{
		{"debug header", nil, DebugUserHeader, "alice", "alice"},
		{"debug without header", nil, "", "", ""},
		{"debug header ignored with verifier", stubVerifier{}, DebugUserHeader, "alice", ""},
		{"valid bearer", stubVerifier{"tok": "bob"}, "Authorization", "Bearer tok", "bob"},
		{"lowercase scheme", stubVerifier{"tok": "bob"}, "Authorization", "bearer tok", "bob"},
		{"invalid bearer", stubVerifier{"tok": "bob"}, "Authorization", "Bearer nope", ""},
		{"basic auth", stubVerifier{"tok": "bob"}, "Authorization", "Basic tok", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := AuthContext(tc.verifier)(http.HandlerFunc(whoami))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tc.want == "" {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected no claims, got %d %q", rec.Code, rec.Body.String())
				}
				return
			}
			if got := rec.Body.String(); got != tc.want {
				t.Fatalf("expected user %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRateLimitWrites_PerActor(t *testing.T) {
	store := NewLimiterStore(0.001, 2, WithCleanupEvery(0))
	h := AuthContext(nil)(RateLimitWrites(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(method, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/groups", nil)
		req.Header.Set(DebugUserHeader, user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do(http.MethodPost, "alice"); rec.Code != http.StatusNoContent {
			t.Fatalf("write %d: expected 204, got %d", i, rec.Code)
		}
	}
	rec := do(http.MethodPost, "alice")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	if rec := do(http.MethodGet, "alice"); rec.Code != http.StatusNoContent {
		t.Fatalf("reads should not be limited, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, "bob"); rec.Code != http.StatusNoContent {
		t.Fatalf("other actors keep their own bucket, got %d", rec.Code)
	}
}

func TestLimiterStore_CleanupRemovesIdleEntries(t *testing.T) {
	now := time.Now()
	s := NewLimiterStore(10, 1, WithIdleTTL(time.Minute), WithCleanupEvery(0))
	s.now = func() time.Time { return now }

	before := s.Get("k")
	if s.Get("k") != before {
		t.Fatalf("expected same limiter for same key")
	}
	now = now.Add(2 * time.Minute)
	s.Cleanup()
	if s.Len() != 0 {
		t.Fatalf("expected idle entry to be removed, len=%d", s.Len())
	}
	if s.Get("k") == before {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}

func TestRateLimitKey_FallsBackToIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	if got := RateLimitKey(req); got != "ip:10.0.0.7" {
		t.Fatalf("expected ip key, got %q", got)
	}
}

func TestAccessLog_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Debug, Format: logger.FormatJSON, Output: &buf})
	h := AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/groups/g1/requests", nil))

	out := buf.String()
	for _, want := range []string{`"status":409`, `"path":"/groups/g1/requests"`, "warn"} {
		if !strings.Contains(strings.ToLower(out), strings.ToLower(want)) {
			t.Fatalf("expected %s in log line, got %s", want, out)
		}
	}
}
