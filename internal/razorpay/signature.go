package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" under secret, the
// value Razorpay hands back to checkout as razorpay_signature.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.TrimSpace(orderID) + "|" + strings.TrimSpace(paymentID)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the checkout signature and compares it with the
// supplied one.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
