package verification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PaymentSignature is hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func PaymentSignature(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignature hashes the body exactly as received.
func WebhookSignature(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func ValidPaymentSignature(secret []byte, orderID, paymentID, supplied string) bool {
	return equalHex(PaymentSignature(secret, orderID, paymentID), supplied)
}

func ValidWebhookSignature(secret, body []byte, supplied string) bool {
	return equalHex(WebhookSignature(secret, body), supplied)
}

// equalHex compares in constant time; a length mismatch still returns false
// without comparing content.
func equalHex(expected, supplied string) bool {
	return hmac.Equal([]byte(expected), []byte(supplied))
}
