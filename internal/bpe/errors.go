package bpe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFragmentExists is returned by RegisterSpecial when the token text is
// already present in the vocabulary, either as a base symbol, a merge
// product, or a previously registered special token.
var ErrFragmentExists = errors.New("fragment already present in vocabulary")

// ConfigError reports a requested vocabulary size that is too small to hold
// the base alphabet plus the allowed special tokens. Training can only grow
// a vocabulary.
type ConfigError struct {
	Requested int
	Minimum   int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("vocab size %d is smaller than base alphabet plus special tokens (%d)",
		e.Requested, e.Minimum)
}

// CharNotFoundError reports input symbols that have no base vocabulary entry.
// Symbols holds every distinct offending symbol in input order.
type CharNotFoundError struct {
	Symbols []string
}

func (e *CharNotFoundError) Error() string {
	return fmt.Sprintf("characters not found in vocabulary: %s", strings.Join(e.Symbols, ", "))
}

// SpecialTokenError reports an allowed special token that has no reserved
// vocabulary entry.
type SpecialTokenError struct {
	Token string
}

func (e *SpecialTokenError) Error() string {
	return fmt.Sprintf("special token %q not found in vocabulary", e.Token)
}

// TokenIDError reports a decode input id outside the vocabulary.
type TokenIDError struct {
	ID int
}

func (e *TokenIDError) Error() string {
	return fmt.Sprintf("token id %d not found in vocabulary", e.ID)
}

// CorruptModelError reports a structurally invalid record in a model
// artifact. Record is the zero-based index of the offending record, or -1
// when the file as a whole is malformed.
type CorruptModelError struct {
	Path   string
	Record int
	Reason string
}

func (e *CorruptModelError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("corrupt model file %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("corrupt model file %s: record %d: %s", e.Path, e.Record, e.Reason)
}
