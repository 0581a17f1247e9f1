package helpers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Matches a signed decimal with optional thousands separators, e.g.
// "1,234.50", "-42", "89.99".
var numberPattern = regexp.MustCompile(`-?\d{1,3}(?:,\d{3})*(?:\.\d+)?|-?\d+(?:\.\d+)?`)

// ExtractNumber returns the first number found in free-form text.
// Thousands separators are stripped before parsing. The second return
// value is false when the text contains no parseable number; callers
// must treat that as data being unavailable, not as a failure.
func ExtractNumber(text string) (float64, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Round2 rounds a value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
