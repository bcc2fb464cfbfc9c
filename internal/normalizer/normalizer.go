// Package normalizer collapses whitespace, strips control characters, and
// removes repeated headers/footers from decoded document text before it is
// chunked. It never fails: empty input yields empty output.
package normalizer

import (
	"regexp"
	"strings"
)

var (
	crlfRe        = regexp.MustCompile(`\r\n?`)
	runsOfBlankRe = regexp.MustCompile(`\n{3,}`)
	runsOfSpaceRe = regexp.MustCompile(`[ ]{2,}`)
)

// isStrippedControl reports whether a rune is an ASCII control character
// that must be stripped. \n and \t are kept; everything else in [0x00,0x1F]
// plus 0x7F is removed.
func isStrippedControl(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return r < 0x20 || r == 0x7f
}

// isStrippedSpacingRune reports whether r falls in one of the Unicode
// spacing/separator ranges the normalizer collapses to a single ASCII space.
func isStrippedSpacingRune(r rune) bool {
	switch {
	case r >= 0x2000 && r <= 0x200B:
		return true
	case r >= 0x2028 && r <= 0x2029:
		return true
	case r == 0x3000:
		return true
	}
	return false
}

// Normalize applies the fixed-order normalization pipeline: line-ending
// normalization, blank-line collapsing, per-line right-strip, control
// character and Unicode-spacing stripping, space-run collapsing, boilerplate
// header/footer removal, a second blank-line collapse, and outer trim.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := crlfRe.ReplaceAllString(text, "\n")
	s = runsOfBlankRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	s = strings.Join(lines, "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isStrippedControl(r) {
			continue
		}
		if isStrippedSpacingRune(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	s = runsOfSpaceRe.ReplaceAllString(s, " ")
	s = removeRepeatedHeadersFooters(s)
	s = runsOfBlankRe.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return s
}

// removeRepeatedHeadersFooters implements the boilerplate-line rule: a line
// qualifies as boilerplate if, after trim+lowercase, it is shorter than 100
// characters and occurs 3 or more times. The first occurrence of each
// boilerplate line is kept; later occurrences are dropped.
func removeRepeatedHeadersFooters(s string) string {
	lines := strings.Split(s, "\n")

	counts := make(map[string]int, len(lines))
	keys := make([]string, len(lines))
	for i, ln := range lines {
		k := strings.ToLower(strings.TrimSpace(ln))
		keys[i] = k
		if k == "" {
			continue
		}
		counts[k]++
	}

	boilerplate := make(map[string]bool, len(counts))
	for k, c := range counts {
		if len(k) < 100 && c >= 3 {
			boilerplate[k] = true
		}
	}
	if len(boilerplate) == 0 {
		return s
	}

	seen := make(map[string]bool, len(boilerplate))
	out := make([]string, 0, len(lines))
	for i, ln := range lines {
		k := keys[i]
		if boilerplate[k] {
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}
