package bpe

import (
	"encoding/json"
	"fmt"
	"os"
)

// vocabRecord is one line of the vocabulary artifact. File order is id
// order.
type vocabRecord struct {
	ID    int    `json:"id"`
	Token string `json:"token"`
}

// mergeRecord is one line of the merges artifact. File order is rank order;
// rank itself is never stored. The record shape matches the artifacts
// produced by other implementations of this format.
type mergeRecord struct {
	Pair  [2]int `json:"pair"`
	NewID int    `json:"new_id"`
}

// Save writes the vocabulary and merge table as two paired JSON artifacts.
// A model saved here loads back with identical encode/decode behavior.
func (t *Tokenizer) Save(vocabPath, mergesPath string) error {
	vocabRecords := make([]vocabRecord, t.vocab.size())
	for id := range vocabRecords {
		fragment, _ := t.vocab.fragment(id)
		vocabRecords[id] = vocabRecord{ID: id, Token: fragment}
	}
	if err := writeJSON(vocabPath, vocabRecords); err != nil {
		return fmt.Errorf("save vocabulary: %w", err)
	}

	mergeRecords := make([]mergeRecord, len(t.merges))
	for rank, m := range t.merges {
		mergeRecords[rank] = mergeRecord{Pair: [2]int{m.pair.Left, m.pair.Right}, NewID: m.newID}
	}
	if err := writeJSON(mergesPath, mergeRecords); err != nil {
		return fmt.Errorf("save merges: %w", err)
	}
	return nil
}

// Load replaces the tokenizer's model with the one stored in the two
// artifacts, rebuilding the inverse lookup and recovering rank order from
// file position. Structural violations fail with *CorruptModelError and
// leave the previous model untouched.
func (t *Tokenizer) Load(vocabPath, mergesPath string) error {
	vocab, err := loadVocab(vocabPath)
	if err != nil {
		return err
	}

	merges, err := loadMerges(mergesPath, vocab)
	if err != nil {
		return err
	}

	t.vocab = vocab
	t.setMerges(merges)
	t.specialCount = 0
	return nil
}

func loadVocab(path string) (*vocabulary, error) {
	var records []vocabRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}

	vocab := newVocabulary()
	for i, rec := range records {
		if rec.ID != i {
			return nil, &CorruptModelError{Path: path, Record: i,
				Reason: fmt.Sprintf("id %d out of order, want %d", rec.ID, i)}
		}
		if rec.Token == "" {
			return nil, &CorruptModelError{Path: path, Record: i, Reason: "empty token"}
		}
		if _, exists := vocab.id(rec.Token); exists {
			return nil, &CorruptModelError{Path: path, Record: i,
				Reason: fmt.Sprintf("duplicate token %q", rec.Token)}
		}
		vocab.add(rec.Token)
	}
	return vocab, nil
}

func loadMerges(path string, vocab *vocabulary) ([]merge, error) {
	var records []mergeRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}

	merges := make([]merge, 0, len(records))
	seen := make(map[Pair]bool, len(records))

	// minted is the set of ids produced by some merge record; mintedSoFar
	// tracks which of them have been produced by the time a record refers
	// to them. A pair id that is minted but not yet minted-so-far is a
	// forward reference.
	minted := make(map[int]bool, len(records))
	for rank, rec := range records {
		if minted[rec.NewID] {
			return nil, &CorruptModelError{Path: path, Record: rank,
				Reason: fmt.Sprintf("new id %d produced twice", rec.NewID)}
		}
		minted[rec.NewID] = true
	}
	mintedSoFar := make(map[int]bool, len(records))

	for rank, rec := range records {
		pair := Pair{Left: rec.Pair[0], Right: rec.Pair[1]}
		if seen[pair] {
			return nil, &CorruptModelError{Path: path, Record: rank,
				Reason: fmt.Sprintf("duplicate pair (%d, %d)", pair.Left, pair.Right)}
		}
		seen[pair] = true

		left, ok := vocab.fragment(pair.Left)
		if !ok {
			return nil, &CorruptModelError{Path: path, Record: rank,
				Reason: fmt.Sprintf("unknown left id %d", pair.Left)}
		}
		right, ok := vocab.fragment(pair.Right)
		if !ok {
			return nil, &CorruptModelError{Path: path, Record: rank,
				Reason: fmt.Sprintf("unknown right id %d", pair.Right)}
		}
		for _, id := range []int{pair.Left, pair.Right} {
			if minted[id] && !mintedSoFar[id] {
				return nil, &CorruptModelError{Path: path, Record: rank,
					Reason: fmt.Sprintf("id %d used before the merge that produces it", id)}
			}
		}

		product, ok := vocab.fragment(rec.NewID)
		if !ok {
			return nil, &CorruptModelError{Path: path, Record: rank,
				Reason: fmt.Sprintf("unknown new id %d", rec.NewID)}
		}
		if product != left+right {
			return nil, &CorruptModelError{Path: path, Record: rank,
				Reason: fmt.Sprintf("new id %d is %q, want %q", rec.NewID, product, left+right)}
		}

		mintedSoFar[rec.NewID] = true
		merges = append(merges, merge{pair: pair, newID: rec.NewID, rank: rank})
	}
	return merges, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return &CorruptModelError{Path: path, Record: -1, Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}
