package model

import "strings"

// RedactedValue replaces sensitive extra values at the read boundary.
const RedactedValue = "***"

// sensitiveKeyMarkers are substrings that mark an extra key as sensitive.
// Matching is case-insensitive.
var sensitiveKeyMarkers = []string{
	"access_token",
	"api_key",
	"apikey",
	"authorization",
	"passphrase",
	"passwd",
	"password",
	"private_key",
	"secret",
	"token",
}

// IsSensitiveKey reports whether an extra key should be masked before
// external exposure.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range sensitiveKeyMarkers {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// RedactExtra returns a copy of extra with sensitive values masked.
// The input is never modified: stored extras stay raw, only external
// reads see the masked copy. Nil input yields nil.
func RedactExtra(extra Extra) Extra {
	if extra == nil {
		return nil
	}
	out := make(Extra, len(extra))
	for k, v := range extra {
		if IsSensitiveKey(k) {
			out[k] = RedactedValue
		} else {
			out[k] = v
		}
	}
	return out
}
