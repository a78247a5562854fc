package bpe

import "sort"

// vocabulary is the bijective id <-> fragment store shared by the trainer,
// encoder, decoder, and persistence codec. Ids are dense over 0..len-1;
// fragments are unique and non-empty.
type vocabulary struct {
	fragments []string
	ids       map[string]int
}

func newVocabulary() *vocabulary {
	return &vocabulary{ids: make(map[string]int)}
}

// add appends fragment with the next free id. The caller must ensure the
// fragment is not already present.
func (v *vocabulary) add(fragment string) int {
	id := len(v.fragments)
	v.fragments = append(v.fragments, fragment)
	v.ids[fragment] = id
	return id
}

// fragment returns the text for id, reporting whether id is in range.
func (v *vocabulary) fragment(id int) (string, bool) {
	if id < 0 || id >= len(v.fragments) {
		return "", false
	}
	return v.fragments[id], true
}

// id returns the id for fragment, reporting whether the fragment is known.
func (v *vocabulary) id(fragment string) (int, bool) {
	id, ok := v.ids[fragment]
	return id, ok
}

func (v *vocabulary) size() int { return len(v.fragments) }

// baseAlphabet returns the distinct elementary symbols of text in sorted
// rune order. Sorting keeps base id assignment independent of the order in
// which symbols first appear, so identical corpora always bootstrap the
// same base vocabulary.
func baseAlphabet(text string) []rune {
	seen := make(map[rune]bool)
	var symbols []rune
	for _, r := range text {
		if !seen[r] {
			seen[r] = true
			symbols = append(symbols, r)
		}
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}
