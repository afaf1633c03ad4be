package ingest

import "crypto/subtle"

const SecretHeader = "x-api-secret"

// SecretMatches compares in constant time. An unset expected secret never
// matches.
func SecretMatches(provided, expected string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
