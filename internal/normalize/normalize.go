// Package normalize canonicalizes free-text names for comparison. The same
// normal form is used for local-store duplicate detection and for accepting or
// rejecting provider hits against the original query.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, removes combining marks, and recomposes,
// turning e.g. "Björk" into "Bjork".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// punctuation stripped from names before comparison. Ampersand is kept so
// "Diana Ross & The Supremes" stays distinct from "Diana Ross The Supremes"
// only by whitespace collapsing, not by token loss.
const punctuation = ".,:;!?'\"`()[]{}<>*/\\|~^%$#@+="

// Name returns the canonical comparison form of a name: diacritics stripped,
// lower-cased, punctuation removed, internal whitespace collapsed.
func Name(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(punctuation, r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Quoted reports whether the query was wrapped in double quotes, requesting
// an exact match, and returns the unwrapped text.
func Quoted(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		return strings.TrimSpace(trimmed[1 : len(trimmed)-1]), true
	}
	return trimmed, false
}

// Accept reports whether a provider hit named candidate is an acceptable
// answer for a query. With exact set, only normalized equality passes: a
// query for one name must not silently resolve to that name plus a qualifier.
// Without exact, a candidate passes when either normalized name contains the
// other as a word prefix.
func Accept(query, candidate string, exact bool) bool {
	q := Name(query)
	c := Name(candidate)
	if q == "" || c == "" {
		return false
	}
	if q == c {
		return true
	}
	if exact {
		return false
	}
	return hasWordPrefix(c, q) || hasWordPrefix(q, c)
}

// hasWordPrefix reports whether s starts with prefix on a word boundary.
func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	rest := s[len(prefix):]
	return rest == "" || rest[0] == ' '
}
