package grading

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// normalize does simple casefolding and trims punctuation/extra spaces.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range []rune(s) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// leadingLabel matches "A", "b)", "(C)", "D.", "E: text", "Option F - text".
var leadingLabel = regexp.MustCompile(`^(?i)(?:option\s+)?\(?([a-z])(?:\s*[.):\-]|$)`)

// bareLabel matches an answer that is nothing but a label: "C", "c.", "(C)", "b)".
var bareLabel = regexp.MustCompile(`^\(?([A-Za-z])\)?[.):]?$`)

// Label returns the letter label of the option at position i: 0 → "A", 1 → "B", ...
// Positions past "Z" are labelled by their 1-based number.
func Label(i int) string {
	if i < 0 {
		return ""
	}
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}

func labelIndex(label string) int {
	if len(label) != 1 {
		return -1
	}
	c := unicode.ToUpper(rune(label[0]))
	if c < 'A' || c > 'Z' {
		return -1
	}
	return int(c - 'A')
}

// extractLabel returns the upper-case label at the start of s, if any.
func extractLabel(s string) (string, bool) {
	m := leadingLabel.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// stripLabel drops a leading label so "A. Paris" compares equal to "Paris".
func stripLabel(s string) string {
	s = strings.TrimSpace(s)
	loc := leadingLabel.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return strings.TrimSpace(s[loc[1]:])
}

// Canonical reduces an answer (or an answer key) to a comparable form.
//
// A bare label ("A", "b)", "(C)") resolves to that label when in range. Full
// option text ("Paris" or "A. Paris") resolves to the option's label by
// position, exact text first and then normalized. A leading label pattern
// ("(C) ...") resolves to that label, and anything else falls back to the
// trimmed input for exact matching.
// Both sides of a comparison go through the same function, so the result does
// not depend on which surface form was stored.
func Canonical(options []string, answer string) string {
	s := strings.TrimSpace(answer)
	if s == "" {
		return ""
	}
	// A bare label wins over option text, since normalize folds "C#" to "c".
	if m := bareLabel.FindStringSubmatch(s); m != nil {
		lbl := strings.ToUpper(m[1])
		if len(options) == 0 || labelIndex(lbl) < len(options) {
			return lbl
		}
	}
	for i, opt := range options {
		if s == strings.TrimSpace(opt) {
			return Label(i)
		}
	}
	ns := normalize(s)
	for i, opt := range options {
		if ns == "" {
			break
		}
		if ns == normalize(opt) || ns == normalize(stripLabel(opt)) {
			return Label(i)
		}
	}
	if lbl, ok := extractLabel(s); ok {
		if len(options) == 0 || labelIndex(lbl) < len(options) {
			return lbl
		}
	}
	return s
}

// Matches reports whether answer selects the same option as key.
func Matches(options []string, answer, key string) bool {
	a := Canonical(options, answer)
	if a == "" {
		return false
	}
	return a == Canonical(options, key)
}
