// Package testutil provides shared model fixtures for tests that need a
// trained tokenizer or its on-disk artifacts.
//
// Typical usage:
//
//	func TestMyHandler(t *testing.T) {
//	    tok := testutil.TrainSample(t)
//	    ...
//	}
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/example/go-pocket-bpe/internal/bpe"
)

// SampleCorpus is the corpus behind TrainSample. It repeats subwords so a
// handful of merges are always learned, and contains SampleSpecial as a
// literal so special-token paths are exercised.
const SampleCorpus = "low lower lowest <|eot|> slow slower slowest"

// SampleSpecial is the special token reserved by TrainSample.
const SampleSpecial = "<|eot|>"

// TrainSample returns a tokenizer trained on SampleCorpus with
// SampleSpecial registered.
func TrainSample(tb testing.TB) *bpe.Tokenizer {
	tb.Helper()

	tok := bpe.New()

	err := tok.Train(SampleCorpus, 40, []string{SampleSpecial})
	if err != nil {
		tb.Fatalf("train sample model: %v", err)
	}
	return tok
}

// WriteSampleModel trains the sample model and saves its two artifacts into
// dir, returning the vocab and merges paths.
func WriteSampleModel(tb testing.TB, dir string) (string, string) {
	tb.Helper()

	vocabPath := filepath.Join(dir, "vocab.json")
	mergesPath := filepath.Join(dir, "merges.json")

	err := TrainSample(tb).Save(vocabPath, mergesPath)
	if err != nil {
		tb.Fatalf("save sample model: %v", err)
	}
	return vocabPath, mergesPath
}
