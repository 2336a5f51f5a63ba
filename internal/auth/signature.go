package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"soundcrate/internal/metrics"
)

// Verifier checks HMAC signatures on mutating API requests. The signed
// payload is the request path, optionally joined with an expiry timestamp.
type Verifier struct {
	secret         []byte
	enforceSigning bool
	metrics        *metrics.Metrics
}

// NewVerifier creates a new signature verifier
func NewVerifier(secret []byte, enforceSigning bool, m *metrics.Metrics) *Verifier {
	return &Verifier{
		secret:         secret,
		enforceSigning: enforceSigning,
		metrics:        m,
	}
}

// Verify checks the signature and expiry for a resource path. When signing
// is not enforced and no signature is supplied the request passes.
func (v *Verifier) Verify(resource, expiryStr, signature string) error {
	hasExpiry := expiryStr != ""

	if hasExpiry {
		expiry, err := strconv.ParseInt(expiryStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid expiry: %w", err)
		}
		if time.Now().Unix() > expiry {
			v.metrics.ExpiredRequestsTotal.Inc()
			return fmt.Errorf("request has expired")
		}
	}

	if v.enforceSigning || signature != "" {
		if signature == "" {
			v.metrics.SignatureFailuresTotal.Inc()
			return fmt.Errorf("signature required")
		}

		payload := resource
		if hasExpiry {
			payload += "|" + expiryStr
		}

		h := hmac.New(sha256.New, v.secret)
		h.Write([]byte(payload))
		expected := hex.EncodeToString(h.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			v.metrics.SignatureFailuresTotal.Inc()
			return fmt.Errorf("invalid signature")
		}
	}

	return nil
}

// Sign produces the signature for a resource path and optional expiry.
// Exposed for clients and tests.
func (v *Verifier) Sign(resource, expiryStr string) string {
	payload := resource
	if expiryStr != "" {
		payload += "|" + expiryStr
	}
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
