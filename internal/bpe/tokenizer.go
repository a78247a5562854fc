// Package bpe implements a character-level Byte Pair Encoding tokenizer:
// training over an in-memory corpus, priority-ordered merge application at
// encode time, atomic special tokens, and a portable two-file model format.
//
// A Tokenizer is exclusively owned while Train or Load runs. Once either has
// returned, the model tables are never mutated again, so any number of
// Encode and Decode calls may run concurrently against the same instance.
package bpe

import (
	"fmt"
	"strings"
)

// Tokenizer holds a trained (or loaded) BPE model.
type Tokenizer struct {
	vocab        *vocabulary
	merges       []merge        // rank order
	mergeByPair  map[Pair]merge // lookup during encode
	specialCount int            // specials registered by the last Train
}

// New returns an empty tokenizer. Train or Load must populate it before
// Encode and Decode are useful.
func New() *Tokenizer {
	t := &Tokenizer{}
	t.vocab = newVocabulary()
	t.setMerges(nil)
	return t
}

func (t *Tokenizer) setMerges(merges []merge) {
	t.merges = merges
	t.mergeByPair = make(map[Pair]merge, len(merges))
	for _, m := range merges {
		t.mergeByPair[m.pair] = m
	}
}

// VocabSize returns the number of vocabulary entries (base symbols plus
// special tokens plus merge products).
func (t *Tokenizer) VocabSize() int { return t.vocab.size() }

// MergesCount returns the number of learned merge rules.
func (t *Tokenizer) MergesCount() int { return len(t.merges) }

// SpecialCount returns the number of special tokens registered by the last
// Train call. It is zero for a loaded model, where the artifacts do not
// distinguish special entries from base entries.
func (t *Tokenizer) SpecialCount() int { return t.specialCount }

// Fragment returns the text for a token id, reporting whether id is known.
func (t *Tokenizer) Fragment(id int) (string, bool) { return t.vocab.fragment(id) }

// ID returns the token id for a fragment, reporting whether it is known.
func (t *Tokenizer) ID(fragment string) (int, bool) { return t.vocab.id(fragment) }

// RegisterSpecial reserves the next free id for token, outside the merge
// process. It fails with ErrFragmentExists when the text is already a
// vocabulary fragment.
func (t *Tokenizer) RegisterSpecial(token string) (int, error) {
	if _, exists := t.vocab.id(token); exists {
		return 0, fmt.Errorf("register special token %q: %w", token, ErrFragmentExists)
	}
	id := t.vocab.add(token)
	t.specialCount++
	return id, nil
}

// Encode converts text to token ids. Tokens listed in allowedSpecial are
// matched literally and map to their single reserved id; everything else is
// mapped to base ids and merged by rank. Encode fails with
// *SpecialTokenError when an allowed special has no vocabulary entry, and
// with *CharNotFoundError naming every unknown symbol when the text
// contains characters outside the trained alphabet. On error no partial
// sequence is returned.
func (t *Tokenizer) Encode(text string, allowedSpecial []string) ([]int, error) {
	ids := []int{}
	for _, seg := range splitSpecial(text, allowedSpecial) {
		if seg.kind == literalSegment {
			id, ok := t.vocab.id(seg.text)
			if !ok {
				return nil, &SpecialTokenError{Token: seg.text}
			}
			ids = append(ids, id)
			continue
		}

		segIDs, err := t.encodeOrdinary(seg.text)
		if err != nil {
			return nil, err
		}
		ids = append(ids, segIDs...)
	}
	return ids, nil
}

// encodeOrdinary maps one ordinary span to base ids and applies the merge
// table: repeatedly find the lowest-rank pair present in the sequence,
// collapse its leftmost occurrence, and rescan. This replays merges in
// training order, so text seen during training tokenizes identically.
func (t *Tokenizer) encodeOrdinary(text string) ([]int, error) {
	var ids []int
	var missing []string
	seen := make(map[rune]bool)
	for _, r := range text {
		id, ok := t.vocab.id(string(r))
		if !ok {
			if !seen[r] {
				seen[r] = true
				missing = append(missing, string(r))
			}
			continue
		}
		ids = append(ids, id)
	}
	if len(missing) > 0 {
		return nil, &CharNotFoundError{Symbols: missing}
	}

	for len(ids) >= 2 {
		bestAt := -1
		var best merge
		for i := 0; i+1 < len(ids); i++ {
			m, ok := t.mergeByPair[Pair{Left: ids[i], Right: ids[i+1]}]
			if ok && (bestAt < 0 || m.rank < best.rank) {
				bestAt = i
				best = m
			}
		}
		if bestAt < 0 {
			break
		}
		ids[bestAt] = best.newID
		ids = append(ids[:bestAt+1], ids[bestAt+2:]...)
	}
	return ids, nil
}

// Decode maps each id back to its fragment and concatenates them. It fails
// with *TokenIDError naming the first id outside the vocabulary.
func (t *Tokenizer) Decode(ids []int) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		fragment, ok := t.vocab.fragment(id)
		if !ok {
			return "", &TokenIDError{ID: id}
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}
