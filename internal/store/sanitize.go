package store

import (
	"strings"
	"unicode"
)

const maxStemLen = 64

// SanitizeName maps s to a file-name-safe stem. Letters, digits, '-' and '_'
// pass through, control characters are dropped and anything else becomes '_'.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

// FileStem is the on-disk name used for a video's audio and clips.
func FileStem(videoID string) string {
	return SanitizeName(videoID, maxStemLen)
}

func isAllowedNameRune(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return r == '-' || r == '_'
}
