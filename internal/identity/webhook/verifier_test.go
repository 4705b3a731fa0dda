package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/postloom/postloom/internal/identity/domain"
)

const testSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func signedHeaders(t *testing.T, secret, msgID string, ts int64, payload []byte) http.Header {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(secret[len("whsec_"):])
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%d.%s", msgID, ts, payload)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	h := http.Header{}
	h.Set("svix-id", msgID)
	h.Set("svix-timestamp", fmt.Sprintf("%d", ts))
	h.Set("svix-signature", "v1,"+sig)
	return h
}

func newTestVerifier(t *testing.T, at time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	v.now = func() time.Time { return at }
	return v
}

func TestVerifyValidSignature(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(t, testSecret, "msg_1", now.Unix(), payload)

	v := newTestVerifier(t, now)
	if err := v.Verify(payload, headers); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyMultipleSignatureEntries(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	headers := signedHeaders(t, testSecret, "msg_1", now.Unix(), payload)
	headers.Set("svix-signature", "v1,bm90LXRoZS1zaWc= "+headers.Get("svix-signature"))

	v := newTestVerifier(t, now)
	if err := v.Verify(payload, headers); err != nil {
		t.Fatalf("expected valid signature among entries, got %v", err)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	v := newTestVerifier(t, now)

	for _, drop := range []string{"svix-id", "svix-timestamp", "svix-signature"} {
		headers := signedHeaders(t, testSecret, "msg_1", now.Unix(), payload)
		headers.Del(drop)
		if err := v.Verify(payload, headers); err != domain.ErrMissingHeaders {
			t.Fatalf("dropped %s: expected ErrMissingHeaders, got %v", drop, err)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	headers := signedHeaders(t, "whsec_d3Jvbmctc2VjcmV0LXdyb25nLXNlY3JldA==", "msg_1", now.Unix(), payload)

	v := newTestVerifier(t, now)
	if err := v.Verify(payload, headers); err != domain.ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"type":"user.deleted","data":{"id":"user_1"}}`)
	headers := signedHeaders(t, testSecret, "msg_1", now.Unix(), payload)

	v := newTestVerifier(t, now)
	tampered := []byte(`{"type":"user.deleted","data":{"id":"user_2"}}`)
	if err := v.Verify(tampered, headers); err != domain.ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)

	stale := now.Add(-10 * time.Minute)
	headers := signedHeaders(t, testSecret, "msg_1", stale.Unix(), payload)

	v := newTestVerifier(t, now)
	if err := v.Verify(payload, headers); err != domain.ErrStaleTimestamp {
		t.Fatalf("expected ErrStaleTimestamp, got %v", err)
	}

	future := now.Add(10 * time.Minute)
	headers = signedHeaders(t, testSecret, "msg_1", future.Unix(), payload)
	if err := v.Verify(payload, headers); err != domain.ErrStaleTimestamp {
		t.Fatalf("expected ErrStaleTimestamp for future timestamp, got %v", err)
	}
}

func TestNewVerifierRejectsEmptySecret(t *testing.T) {
	if _, err := NewVerifier(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewVerifier("whsec_"); err == nil {
		t.Fatal("expected error for empty key")
	}
}
