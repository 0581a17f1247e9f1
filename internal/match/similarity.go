package match

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// TokenSet lower-cases a title and collects its maximal alphanumeric runs
// into a set; duplicates collapse and order is irrelevant.
func TokenSet(title string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range tokenPattern.FindAllString(strings.ToLower(title), -1) {
		set[token] = struct{}{}
	}
	return set
}

// Jaccard returns the Jaccard index of two token sets, defined as 0 when
// either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
