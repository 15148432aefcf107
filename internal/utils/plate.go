package utils

import (
	"strings"
	"unicode"
)

const (
	PlateLength  = 7
	RegionMarker = "RA"
)

// NormalizePlate upper-cases a user supplied plate and drops everything that is
// not a letter or a digit. It is meant for lookups, not for validating
// recognizer output.
func NormalizePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(plate) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePlate extracts a plate from raw recognizer text. The plate starts at
// the first region marker and must look like LLLDDDL. The second return value
// is false when the text holds no plate.
func ValidatePlate(raw string) (string, bool) {
	text := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	idx := strings.Index(text, RegionMarker)
	if idx < 0 {
		return "", false
	}
	candidate := text[idx:]
	if len(candidate) < PlateLength {
		return "", false
	}
	candidate = candidate[:PlateLength]

	for i := 0; i < PlateLength; i++ {
		c := candidate[i]
		switch {
		case i < 3 || i == 6:
			if c < 'A' || c > 'Z' {
				return "", false
			}
		default:
			if c < '0' || c > '9' {
				return "", false
			}
		}
	}
	return candidate, true
}
