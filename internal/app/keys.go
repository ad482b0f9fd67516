package app

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// minJWTSecretBytes is the HS256 key size.
const minJWTSecretBytes = 32

// SecretByteLength returns the decoded byte length of a secret string.
// It supports hex, base64, and raw string encodings.
func SecretByteLength(value string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return len(decoded)
		}
	}

	// Support both standard and URL-safe base64, padded or raw
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(v); err == nil {
			return len(decoded)
		}
	}

	return len(v)
}
