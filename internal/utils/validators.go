package utils

import (
	"strings"
	"unicode"
)

// MaxParticipantIDLength bounds participant identifiers.
const MaxParticipantIDLength = 64

// NormalizeParticipantID trims the id and reports whether it is usable: one
// to MaxParticipantIDLength letters, digits, dashes, dots or underscores.
func NormalizeParticipantID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxParticipantIDLength {
		return id, false
	}
	for _, char := range id {
		switch {
		case unicode.IsLetter(char), unicode.IsDigit(char):
		case char == '-', char == '_', char == '.':
		default:
			return id, false
		}
	}
	return id, true
}
