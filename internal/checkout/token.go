package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const paymentReferenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewSessionToken returns an unguessable opaque session identifier.
func NewSessionToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return "cs_" + hex.EncodeToString(buf), nil
}

// NewPaymentReference returns a short human-facing reference the customer
// quotes on the manual bank transfer. Ambiguous characters are excluded.
func NewPaymentReference() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating payment reference: %w", err)
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = paymentReferenceAlphabet[int(b)%len(paymentReferenceAlphabet)]
	}
	return "HBB-" + string(out), nil
}
