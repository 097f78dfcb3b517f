package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"carrental/internal/app/apperr"
)

var (
	ErrSignatureMismatch = apperr.Define(apperr.KindAuthorization, "signature_mismatch", "payments: signature mismatch")
	ErrSecretMissing     = errors.New("payments: signing secret missing")
)

// Signer implements the gateway checkout signature: hex(HMAC-SHA256(secret, order_id|payment_id)).
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (Signer, error) {
	if secret == "" {
		return Signer{}, ErrSecretMissing
	}
	return Signer{secret: []byte(secret)}, nil
}

func (s Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time. Missing ids or a malformed signature are a mismatch.
func (s Signer) Verify(orderID, paymentID, signature string) error {
	if len(s.secret) == 0 {
		return ErrSecretMissing
	}
	if orderID == "" || paymentID == "" {
		return ErrSignatureMismatch
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	if !hmac.Equal(mac.Sum(nil), given) {
		return ErrSignatureMismatch
	}
	return nil
}

// Signed is implemented by messages that carry a gateway payment assertion.
type Signed interface {
	PaymentAssertion() (orderID, paymentID, signature string)
}

// SignatureGate is a bus authorizer that rejects tampered assertions before a unit begins.
type SignatureGate struct {
	Signer Signer
}

func (g SignatureGate) Authorize(_ context.Context, message any) error {
	signed, ok := message.(Signed)
	if !ok {
		return nil
	}
	return g.Signer.Verify(signed.PaymentAssertion())
}
