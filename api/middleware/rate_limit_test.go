package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeWindowStore()
	policy := RateLimitPolicy{Name: "order_create", Window: time.Minute, Limit: 2}
	handler := RateLimit(policy, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("buyer-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	store := newFakeWindowStore()
	policy := RateLimitPolicy{Name: "order_create", Window: time.Minute, Limit: 2}
	handler := RateLimit(policy, store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("buyer-1"))

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("expected success before limit, got %d", rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code: %s", payload.Error.Code)
		}
	}
}

func TestRateLimit_CountsPerUser(t *testing.T) {
	store := newFakeWindowStore()
	policy := RateLimitPolicy{Name: "order_create", Window: time.Minute, Limit: 1}
	handler := RateLimit(policy, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("buyer-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for first buyer, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("buyer-2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected second buyer to have a fresh window, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("buyer-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for first buyer, got %d", rec.Code)
	}
}

func TestRateLimit_RejectsUnauthenticated(t *testing.T) {
	store := newFakeWindowStore()
	policy := RateLimitPolicy{Name: "order_create", Window: time.Minute, Limit: 2}
	handler := RateLimit(policy, store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context, got %d", rec.Code)
	}
}

func TestRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	policy := RateLimitPolicy{Name: "order_create"}
	handler := RateLimit(policy, newFakeWindowStore(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected disabled policy to pass through, got %d", rec.Code)
	}
}

func TestRateLimit_NilStorePassesThrough(t *testing.T) {
	policy := RateLimitPolicy{Name: "order_create", Window: time.Minute, Limit: 1}
	handler := RateLimit(policy, nil, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("buyer-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through without store, got %d", rec.Code)
		}
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	return req.WithContext(WithUserID(req.Context(), userID))
}

type fakeWindowStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{counts: map[string]int64{}}
}

func (f *fakeWindowStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}
