package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/example/go-pocket-bpe/internal/bpe"
	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a BPE model from a corpus and save its artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			corpus, err := readCorpus(cfg.Train.CorpusPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tok := bpe.New()

			start := time.Now()
			err = tok.Train(corpus, cfg.Train.VocabSize, cfg.Train.SpecialTokens)
			if err != nil {
				return err
			}

			slog.Info("training complete",
				slog.Int("corpus_bytes", len(corpus)),
				slog.Int("vocab_size", tok.VocabSize()),
				slog.Int("merges_count", tok.MergesCount()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)

			if tok.VocabSize() < cfg.Train.VocabSize {
				slog.Warn("corpus exhausted before reaching target vocab size",
					slog.Int("target", cfg.Train.VocabSize),
					slog.Int("actual", tok.VocabSize()),
				)
			}

			if err := tok.Save(cfg.Paths.VocabPath, cfg.Paths.MergesPath); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "trained %d tokens (%d merges) -> %s, %s\n",
				tok.VocabSize(), tok.MergesCount(), cfg.Paths.VocabPath, cfg.Paths.MergesPath)
			return err
		},
	}

	return cmd
}

// readCorpus reads the training text from path, or from in when path is
// empty.
func readCorpus(path string, in io.Reader) (string, error) {
	if path == "" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read corpus from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read corpus: %w", err)
	}
	return string(data), nil
}
