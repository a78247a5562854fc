package bpe

import (
	"sort"
	"strings"
	"unicode/utf8"
)

type segmentKind int

const (
	ordinarySegment segmentKind = iota
	literalSegment
)

// segment is one span of input text: either the literal text of an allowed
// special token, or a run of ordinary text between such tokens.
type segment struct {
	kind segmentKind
	text string
}

// splitSpecial partitions text into alternating literal and ordinary
// segments. Only tokens in allowedSpecial are detected; anything else,
// including special-token text that is not in the allowed set, stays part of
// the surrounding ordinary segment. When several allowed tokens match at the
// same position the longest wins, so a short token never shadows a longer
// one it is a prefix of.
func splitSpecial(text string, allowedSpecial []string) []segment {
	specials := dedupSpecials(allowedSpecial)
	if len(specials) == 0 {
		if text == "" {
			return nil
		}
		return []segment{{kind: ordinarySegment, text: text}}
	}

	var segments []segment
	start := 0 // start of the current ordinary run

	for i := 0; i < len(text); {
		tok := matchSpecialAt(text[i:], specials)
		if tok == "" {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
			continue
		}

		if i > start {
			segments = append(segments, segment{kind: ordinarySegment, text: text[start:i]})
		}
		segments = append(segments, segment{kind: literalSegment, text: tok})
		i += len(tok)
		start = i
	}

	if start < len(text) {
		segments = append(segments, segment{kind: ordinarySegment, text: text[start:]})
	}
	return segments
}

// matchSpecialAt returns the longest special token that is a prefix of s,
// or "" when none matches. specials must be sorted longest first.
func matchSpecialAt(s string, specials []string) string {
	for _, tok := range specials {
		if strings.HasPrefix(s, tok) {
			return tok
		}
	}
	return ""
}

// dedupSpecials drops empty and duplicate entries and sorts the result by
// descending length so prefix scans find the longest match first.
func dedupSpecials(allowedSpecial []string) []string {
	seen := make(map[string]bool, len(allowedSpecial))
	var specials []string
	for _, tok := range allowedSpecial {
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		specials = append(specials, tok)
	}
	sort.SliceStable(specials, func(i, j int) bool { return len(specials[i]) > len(specials[j]) })
	return specials
}
