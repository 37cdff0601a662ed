package resolve

import (
	"strings"
	"unicode"
)

// corporateSuffixes are trimmed for comparison so "Acme" and "Acme LLC"
// score close; they stay in the stored alias list untouched.
var corporateSuffixes = map[string]bool{
	"llc": true, "inc": true, "corp": true, "corporation": true,
	"ltd": true, "lp": true, "llp": true, "co": true, "company": true,
	"incorporated": true, "limited": true,
}

// NormalizeName produces the case/whitespace/punctuation-insensitive form
// of a name used as an identity key
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	prevSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		default:
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// tokens splits a normalized name, dropping corporate suffixes when doing
// so leaves anything to compare
func tokens(normalized string) []string {
	fields := strings.Fields(normalized)

	var kept []string
	for _, f := range fields {
		if !corporateSuffixes[f] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return fields
	}
	return kept
}

// Similarity scores two raw names in [0,1]. It is a token overlap measure
// (Jaccard) with full credit for containment, which handles registry
// spellings like "ACME, LLC" vs "Acme LLC" and short forms like "Acme"
// vs "Acme Holdings".
func Similarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ta, tb := tokens(na), tokens(nb)
	setA := make(map[string]bool, len(ta))
	for _, t := range ta {
		setA[t] = true
	}

	shared := 0
	setB := make(map[string]bool, len(tb))
	for _, t := range tb {
		if setB[t] {
			continue
		}
		setB[t] = true
		if setA[t] {
			shared++
		}
	}

	if shared == 0 {
		return 0
	}
	min := len(setA)
	if len(setB) < min {
		min = len(setB)
	}
	if shared == min {
		// One name contained in the other
		return 1
	}

	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}
