package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks an HMAC-SHA256 webhook signature in constant time.
// The header value may carry a "sha256=" prefix (Graph API convention).
// An empty secret means signing is not configured for the instance and the
// check passes; an empty header with a configured secret fails.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" {
		return true
	}
	header = strings.TrimPrefix(header, "sha256=")
	if header == "" {
		return false
	}
	sig, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
