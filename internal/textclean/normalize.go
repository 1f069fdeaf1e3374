// Package textclean turns raw recognizer output into a single cleaned line.
package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Noise policy. Fixed on purpose: there is no configuration surface for these.
const (
	// MinTokenLength is the shortest token that makes a line worth keeping.
	MinTokenLength = 4
	// NoiseLineLength marks single-character lines as noise.
	NoiseLineLength = 1
)

// reLineBreak also covers VT, FF, the ASCII separators 0x1c-0x1e, NEL, U+2028 and U+2029.
var reLineBreak = regexp.MustCompile(`\r\n|[\n\r\v\f\x1c\x1d\x1e\x{85}\x{2028}\x{2029}]`)

// IsNoise reports whether a line carries no useful text.
func IsNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}

	allShort := true
	for _, tok := range strings.Fields(trimmed) {
		if utf8.RuneCountInString(tok) >= MinTokenLength {
			allShort = false
			break
		}
	}
	if allShort {
		return true
	}

	return utf8.RuneCountInString(trimmed) == NoiseLineLength
}

// Normalize drops noise lines, strips '|' from the rest and joins them with a single space.
// A line left blank by the stripping is dropped too. Output is "" when every line is noise.
func Normalize(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if IsNoise(trimmed) {
			continue
		}
		cleaned := strings.TrimSpace(strings.ReplaceAll(trimmed, "|", ""))
		if cleaned == "" {
			continue
		}
		kept = append(kept, cleaned)
	}
	return strings.Join(kept, " ")
}

// NormalizeText splits raw with SplitLines before calling Normalize.
func NormalizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return Normalize(SplitLines(raw))
}

// SplitLines splits on every line boundary reLineBreak knows, CRLF counting once.
func SplitLines(raw string) []string {
	return reLineBreak.Split(raw, -1)
}
