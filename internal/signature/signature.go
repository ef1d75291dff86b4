// Package signature implements the canonical signing scheme shared with the
// gateway: entries sorted by key, concatenated as key+value, suffixed with the
// merchant secret and hashed with SHA-256.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Field is the parameter name that carries the signature itself. It is never
// part of the signed material.
const Field = "signature"

// Sign returns the lowercase hex SHA-256 digest of the canonical signing string
// for params. Empty values are signed as empty strings; absent keys are not
// signed at all, so the two produce different digests.
func Sign(params map[string]string, secret string) string {
	sum := sha256.Sum256([]byte(CanonicalString(params, secret)))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the signature over params (ignoring any signature entry)
// and compares it with received in constant time.
func Verify(received string, params map[string]string, secret string) bool {
	if received == "" {
		return false
	}
	expected := Sign(params, secret)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(received)), []byte(expected)) == 1
}

// CanonicalString builds the string that gets hashed. Keys are ordered
// byte-wise ascending.
func CanonicalString(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == Field {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)
	return b.String()
}
