// Package signing computes the SHA-512 digests exchanged with the provider.
//
// Every digest is the lowercase hex SHA-512 of a plain concatenation of
// strings with no separators. The order of the parts is fixed by the provider.
package signing

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HeaderName is the request header carrying the outbound digest.
const HeaderName = "hash"

// RequestHash signs an outbound call: reference, then each non-empty field in
// the given order, then secret.
func RequestHash(reference string, fields []string, secret string) string {
	h := sha512.New()
	h.Write([]byte(reference))
	for _, f := range fields {
		if f == "" {
			continue
		}
		h.Write([]byte(f))
	}
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// WebhookHash is the digest a funding notification must carry.
func WebhookHash(statusCode, accountNumber, amount, clearingFeeAmount, secret string) string {
	sum := sha512.Sum512([]byte(statusCode + accountNumber + amount + clearingFeeAmount + secret))
	return hex.EncodeToString(sum[:])
}

// Equal compares two hex digests in constant time, ignoring case.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(a)), []byte(strings.ToLower(b))) == 1
}
