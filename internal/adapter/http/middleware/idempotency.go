package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	stateProcessing = "processing"
	stateDone       = "done"

	maxIdempotentBody = 1 << 20
)

// storedResponse is what the store holds under an idempotency key.
type storedResponse struct {
	State       string `json:"state"`
	Fingerprint string `json:"fingerprint"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyMiddleware replays the first successful response for a repeated key.
// A key whose first request is still running answers 409; a key reused with a
// different body answers 422. Failed responses release the key for a retry.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBody))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		scoped := r.Method + " " + r.URL.Path + " " + key
		fingerprint := fingerprintOf(body)

		claim, _ := json.Marshal(storedResponse{State: stateProcessing, Fingerprint: fingerprint})
		exists, existing, err := m.store.CheckAndSet(r.Context(), scoped, claim, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("idempotency_key", key).Msg("idempotency check failed")
			writeJSONError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}

		if exists {
			m.replay(w, existing, fingerprint)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		// Detached from the request so a disconnecting client cannot strand the claim.
		storeCtx := context.WithoutCancel(r.Context())
		completed := false
		defer func() {
			if !completed {
				m.release(storeCtx, scoped)
			}
		}()

		next.ServeHTTP(recorder, r)
		completed = true

		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			m.release(storeCtx, scoped)
			return
		}

		final, _ := json.Marshal(storedResponse{
			State:       stateDone,
			Fingerprint: fingerprint,
			StatusCode:  recorder.statusCode,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err := m.store.Update(storeCtx, scoped, final, m.ttl); err != nil {
			m.logger.Error().Err(err).Str("idempotency_key", key).Msg("failed to store idempotent response")
		}
	})
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, raw []byte, fingerprint string) {
	var stored storedResponse
	if len(raw) == 0 || json.Unmarshal(raw, &stored) != nil || stored.State != stateDone {
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, http.StatusConflict, "request with this idempotency key is in progress")
		return
	}

	if stored.Fingerprint != fingerprint {
		writeJSONError(w, http.StatusUnprocessableEntity, "idempotency key reused with a different request")
		return
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(stored.StatusCode)
	w.Write(stored.Body)
}

func (m *IdempotencyMiddleware) release(ctx context.Context, key string) {
	if err := m.store.Release(ctx, key); err != nil {
		m.logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
	}
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
