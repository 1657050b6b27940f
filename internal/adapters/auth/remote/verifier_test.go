package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-coordination/internal/ports/auth"
)

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != verifyPath || r.Header.Get("X-Api-Key") != "key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["token"] {
		case "good":
			_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "u-1", "username": "alice"})
		case "empty":
			_ = json.NewEncoder(w).Encode(map[string]string{})
		case "boom":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v, err := NewVerifier(Config{BaseURL: srv.URL, APIKey: "key"})
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}
	ctx := context.Background()

	c, err := v.Verify(ctx, "good")
	if err != nil || c.UserID != "u-1" || c.Username != "alice" {
		t.Fatalf("unexpected result: %+v err=%v", c, err)
	}
	if _, err := v.Verify(ctx, "bad"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := v.Verify(ctx, "boom"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if _, err := v.Verify(ctx, "empty"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream for missing user_id, got %v", err)
	}
}

func TestNewVerifier_RequiresBaseURL(t *testing.T) {
	if _, err := NewVerifier(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
