package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeToken trims a single-token value read from markup or a text file,
// a leading byte order mark is dropped as well.
func NormalizeToken(token string) string {
	token = strings.TrimPrefix(token, "\ufeff")
	token = strings.TrimSpace(token)
	return token
}

// ParseCount parses counters rendered like "(1,234)" or " 56 ".
func ParseCount(text string) (int, error) {
	text = whitespaceRegex.ReplaceAllString(text, "")
	text = strings.Trim(text, "()")
	text = strings.ReplaceAll(text, ",", "")
	return strconv.Atoi(text)
}

// IsDigits reports whether s is non-empty and consists only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
