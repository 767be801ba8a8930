// Copyright (c) 2026 Tebeo. All rights reserved.

package comics

import "strings"

// NormalizeISBN canonicalizes a raw ISBN string.
//
// Hyphens are stripped; the result must consist only of decimal digits and be
// exactly 10 or 13 characters long. Any other shape (letters, other
// separators, wrong length, empty input) is rejected.
//
// The function is pure and idempotent: feeding a previously normalized value
// back in returns it unchanged.
func NormalizeISBN(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	cleaned := strings.ReplaceAll(raw, "-", "")

	if len(cleaned) != 10 && len(cleaned) != 13 {
		return "", false
	}

	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	return cleaned, true
}
