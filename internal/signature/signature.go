// Package signature proves that a payment completion callback originated from
// the gateway holding the shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign computes hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func (v *Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the supplied signature against the expected one in constant
// time.
func (v *Verifier) Verify(orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	expected := v.Sign(orderID, paymentID)
	return hmac.Equal([]byte(signature), []byte(expected))
}
