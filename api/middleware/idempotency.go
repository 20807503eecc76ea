package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/sokonihq/sokoni-backend/api/responses"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	pkgredis "github.com/sokonihq/sokoni-backend/pkg/redis"
)

const (
	replayTTLDefault = 24 * time.Hour
	replayTTLMoney   = 7 * 24 * time.Hour
)

// replayRule marks a POST surface as idempotent. A pattern matches on
// exact path, or on prefix plus optional suffix when exact is empty.
type replayRule struct {
	exact  string
	prefix string
	suffix string
	ttl    time.Duration
}

func (rr replayRule) matches(pattern string) bool {
	if rr.exact != "" {
		return pattern == rr.exact
	}
	if !strings.HasPrefix(pattern, rr.prefix) {
		return false
	}
	return rr.suffix == "" || strings.HasSuffix(pattern, rr.suffix)
}

// Money-moving endpoints keep their replay window for a full week.
var replayRules = []replayRule{
	{exact: "/api/orders", ttl: replayTTLMoney},
	{prefix: "/api/orders/", suffix: "/cancel", ttl: replayTTLMoney},
	{prefix: "/api/orders/", suffix: "/confirm-delivery", ttl: replayTTLMoney},
	{prefix: "/api/admin/orders/", suffix: "/payment-approval", ttl: replayTTLMoney},
	{prefix: "/api/admin/escrow/", ttl: replayTTLMoney},
	{prefix: "/api/orders/", suffix: "/report-issue", ttl: replayTTLDefault},
}

func replayTTLFor(method, pattern string) (time.Duration, bool) {
	if method != http.MethodPost || pattern == "" {
		return 0, false
	}
	for _, rule := range replayRules {
		if rule.matches(pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

// cachedResponse is what gets replayed when the same Idempotency-Key
// arrives again. The request hash guards against key reuse with a
// different payload.
type cachedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency makes marked POST endpoints safe to retry. The first
// request's response is cached under the client's Idempotency-Key and
// replayed verbatim on duplicates within the TTL.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayTTLFor(r.Method, routePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			requestHash := base64.StdEncoding.EncodeToString(sum[:])

			scope := strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
			key := store.IdempotencyKey(scope, clientKey)

			stored, getErr := store.Get(r.Context(), key)
			switch {
			case getErr != nil && !errors.Is(getErr, redis.Nil):
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			case stored != "":
				var cached cachedResponse
				if err := json.Unmarshal([]byte(stored), &cached); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if cached.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, cached)
				return
			}

			tee := &teeWriter{ResponseWriter: w}
			next.ServeHTTP(tee, r)

			record := cachedResponse{
				Status:      tee.statusOr(http.StatusOK),
				Body:        base64.StdEncoding.EncodeToString(tee.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := tee.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}

			payload, err := json.Marshal(record)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "marshal idempotency record", err)
				}
				return
			}
			if _, err := store.SetNX(r.Context(), key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(r.Context(), "persist idempotency record", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, cached cachedResponse) {
	if ct := cached.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(cached.Status)
	if decoded, err := base64.StdEncoding.DecodeString(cached.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// teeWriter duplicates the response into a buffer so it can be cached
// after the handler finishes.
type teeWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (t *teeWriter) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *teeWriter) Write(b []byte) (int, error) {
	if t.status == 0 {
		t.status = http.StatusOK
	}
	t.body.Write(b)
	return t.ResponseWriter.Write(b)
}

func (t *teeWriter) statusOr(fallback int) int {
	if t.status == 0 {
		return fallback
	}
	return t.status
}
