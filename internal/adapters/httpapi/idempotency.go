package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/campus-shuttle/transport-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// idempotent runs a mutating handler under the Idempotency-Key protocol:
// - replay the stored 2xx response if the same caller+key+route+body is seen again
// - reject the same caller+key+route with a different body (409 IDEMPOTENCY_KEY_REUSE)
//
// canon is the canonical request (body plus path parameters) used for the body hash.
// Requests without the header run directly.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, route string, canon any, status int, run func() (any, error)) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	caller, _ := callerFromContext(ctx)

	if key == "" || s.Idem == nil {
		resp, err := run()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, status, resp)
		return
	}

	bodyHash, err := hashCanonical(canon)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: caller,
		Method:  r.Method,
		Route:   route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.now(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		writeAppError(w, r, err)
		return
	} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Idempotent-Replayed", "true")
		writeRawJSON(w, rec.StatusCode, rec.ContentType, rec.Body)
		return
	}

	resp, err := run()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	// Store successful response for replay.
	if err := s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now(),
	}); err != nil {
		loggerFromContext(ctx).WithError(err).Warn("store idempotent response")
	}
	writeRawJSON(w, status, "application/json", b)
}

func hashCanonical(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
