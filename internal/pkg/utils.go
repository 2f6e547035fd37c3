package pkg

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashSHA256 hex-encodes the sha256 digest of s.
func HashSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// IdentityKey derives the anonymous requester identity from the client IP
// and an optional client-supplied fingerprint. Raw IPs never leave this
// function.
func IdentityKey(ip, fingerprint string) string {
	return HashSHA256(ip + "|" + fingerprint)
}

// SignHMAC computes the hex HMAC-SHA256 of payload under secret, used to
// sign webhook deliveries.
func SignHMAC(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
