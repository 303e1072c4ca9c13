package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var intRe = regexp.MustCompile(`\d+`)

// FirstInt extracts the first run of digits from free text, e.g. an age
// out of "about 45 years". The second return is false when there is none.
func FirstInt(s string) (int, bool) {
	m := intRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Gender classifies a free-text gender into "male", "female" or "other"
// by first-letter prefix. Anything else passes through trimmed and
// lowercased, so an unrecognized criterion never matches an absent value.
func Gender(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(t, "m"):
		return "male"
	case strings.HasPrefix(t, "f"):
		return "female"
	case strings.HasPrefix(t, "o"):
		return "other"
	default:
		return t
	}
}
