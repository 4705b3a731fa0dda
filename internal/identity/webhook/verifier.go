// Package webhook verifies signed identity-provider deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/postloom/postloom/internal/identity/domain"
)

// Deliveries older or newer than this are rejected to bound replay.
const timestampTolerance = 5 * time.Minute

// Verifier checks the svix-style signature scheme the identity provider
// signs deliveries with: HMAC-SHA256 over "{id}.{timestamp}.{payload}" with
// a shared secret, base64 signatures listed as "v1,<sig>" entries.
type Verifier struct {
	key []byte
	now func() time.Time
}

func NewVerifier(secret string) (*Verifier, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(secret), "whsec_")
	if raw == "" {
		return nil, fmt.Errorf("webhook secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	return &Verifier{key: key, now: time.Now}, nil
}

// Verify authenticates one delivery. All three headers are required; a
// failure here rejects the request before any handler logic runs.
func (v *Verifier) Verify(payload []byte, headers http.Header) error {
	msgID := strings.TrimSpace(headers.Get("svix-id"))
	msgTimestamp := strings.TrimSpace(headers.Get("svix-timestamp"))
	msgSignature := strings.TrimSpace(headers.Get("svix-signature"))
	if msgID == "" || msgTimestamp == "" || msgSignature == "" {
		return domain.ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(msgTimestamp, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	now := v.now()
	at := time.Unix(ts, 0)
	if at.Before(now.Add(-timestampTolerance)) || at.After(now.Add(timestampTolerance)) {
		return domain.ErrStaleTimestamp
	}

	signedContent := fmt.Sprintf("%s.%s.%s", msgID, msgTimestamp, string(payload))
	mac := hmac.New(sha256.New, v.key)
	_, _ = mac.Write([]byte(signedContent))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, entry := range strings.Fields(msgSignature) {
		parts := strings.SplitN(entry, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return nil
		}
	}

	return domain.ErrInvalidSignature
}
