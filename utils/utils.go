package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeText lowercases s and collapses every run of whitespace into a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// StripPunctuation replaces every rune that is neither a letter, a digit nor whitespace with a space.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
}

// ContainsWord reports whether word occurs in text bounded by spaces or the string edges.
func ContainsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; start <= len(text)-len(word); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		before := idx == 0 || text[idx-1] == ' '
		after := end == len(text) || text[end] == ' '
		if before && after {
			return true
		}
		start = idx + 1
	}
	return false
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Min returns the smaller of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
