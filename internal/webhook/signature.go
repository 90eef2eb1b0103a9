// Package webhook authenticates provider callbacks and decodes them into a closed set of events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"clothing-marketplace/internal/model"
)

const (
	// PaymentSignatureHeader carries the payment gateway's HMAC of the raw body.
	PaymentSignatureHeader = "X-Razorpay-Signature"
	// PaymentEventIDHeader carries the gateway's unique delivery id.
	PaymentEventIDHeader = "X-Razorpay-Event-Id"
	// ShippingSignatureHeader carries the courier aggregator's HMAC of the raw body.
	ShippingSignatureHeader = "X-Shipping-Signature"
)

// Sign returns the hex-encoded HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the HMAC of the raw body in constant time.
// A missing signature or an unset secret never verifies.
func Verify(body []byte, secret, signature string) error {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" || secret == "" {
		return model.ErrInvalidSignature
	}
	expected := Sign(body, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return model.ErrInvalidSignature
	}
	return nil
}
