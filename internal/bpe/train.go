package bpe

import "fmt"

// Pair is an adjacent (left, right) token id pair.
type Pair struct {
	Left  int
	Right int
}

// less orders pairs lexicographically by (Left, Right). It is the training
// tie-break: among equally frequent pairs the smallest pair wins, so two
// runs over the same corpus always pick the same merge.
func (p Pair) less(q Pair) bool {
	if p.Left != q.Left {
		return p.Left < q.Left
	}
	return p.Right < q.Right
}

// merge is one learned rule: Pair rewrites to NewID. Rank is the discovery
// order; lower rank wins at encode time.
type merge struct {
	pair  Pair
	newID int
	rank  int
}

// Train learns a BPE model from corpus. It discards any previous model
// state, bootstraps the base alphabet, reserves an id for every token in
// allowedSpecial, and then merges the most frequent adjacent pair until the
// vocabulary reaches vocabSize or no pair occurs more than once. Stopping
// short of vocabSize is not an error; the caller can observe the final size
// via VocabSize.
//
// Occurrences of allowed special tokens in the corpus are split out before
// merging begins, so no merge ever crosses or absorbs a special token.
func (t *Tokenizer) Train(corpus string, vocabSize int, allowedSpecial []string) error {
	specials := dedupSpecials(allowedSpecial)
	alphabet := baseAlphabet(corpus)

	if vocabSize < len(alphabet)+len(specials) {
		return &ConfigError{Requested: vocabSize, Minimum: len(alphabet) + len(specials)}
	}

	vocab := newVocabulary()
	for _, r := range alphabet {
		vocab.add(string(r))
	}
	for _, tok := range specials {
		if _, exists := vocab.id(tok); exists {
			return fmt.Errorf("register special token %q: %w", tok, ErrFragmentExists)
		}
		vocab.add(tok)
	}

	// One id sequence per ordinary span. Keeping spans separate means pair
	// counting and rewriting can never reach across a special-token
	// boundary.
	var chunks [][]int
	for _, seg := range splitSpecial(corpus, specials) {
		if seg.kind != ordinarySegment {
			continue
		}
		ids := make([]int, 0, len(seg.text))
		for _, r := range seg.text {
			id, _ := vocab.id(string(r))
			ids = append(ids, id)
		}
		chunks = append(chunks, ids)
	}

	var merges []merge
	for vocab.size() < vocabSize {
		pair, count, ok := mostFrequentPair(chunks)
		if !ok || count < 2 {
			break
		}

		left, _ := vocab.fragment(pair.Left)
		right, _ := vocab.fragment(pair.Right)
		newID := vocab.add(left + right)
		merges = append(merges, merge{pair: pair, newID: newID, rank: len(merges)})

		for i, ids := range chunks {
			chunks[i] = mergePair(ids, pair, newID)
		}
	}

	t.vocab = vocab
	t.setMerges(merges)
	t.specialCount = len(specials)
	return nil
}

// mostFrequentPair counts every adjacent pair across all chunks and returns
// the winner: highest count, ties broken by smallest (left, right). ok is
// false when no chunk has two adjacent tokens.
func mostFrequentPair(chunks [][]int) (Pair, int, bool) {
	counts := make(map[Pair]int)
	for _, ids := range chunks {
		for i := 0; i+1 < len(ids); i++ {
			counts[Pair{Left: ids[i], Right: ids[i+1]}]++
		}
	}
	if len(counts) == 0 {
		return Pair{}, 0, false
	}

	var best Pair
	bestCount := -1
	for pair, count := range counts {
		if count > bestCount || (count == bestCount && pair.less(best)) {
			best = pair
			bestCount = count
		}
	}
	return best, bestCount, true
}

// mergePair rewrites ids left to right, replacing every non-overlapping
// occurrence of pair with newID. A match consumes both positions, so in
// "aaa" the pair (a,a) merges once and leaves the trailing a untouched.
func mergePair(ids []int, pair Pair, newID int) []int {
	out := make([]int, 0, len(ids))
	for i := 0; i < len(ids); {
		if i+1 < len(ids) && ids[i] == pair.Left && ids[i+1] == pair.Right {
			out = append(out, newID)
			i += 2
			continue
		}
		out = append(out, ids[i])
		i++
	}
	return out
}
