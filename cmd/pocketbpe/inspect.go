package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate the model artifacts and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			// Load performs full structural validation, so reaching this
			// point means both artifacts are well formed.
			tok, err := loadModel(cfg)
			if err != nil {
				return err
			}

			longest := ""
			for id := 0; id < tok.VocabSize(); id++ {
				fragment, _ := tok.Fragment(id)
				if utf8.RuneCountInString(fragment) > utf8.RuneCountInString(longest) {
					longest = fragment
				}
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "vocab:     %s\n", cfg.Paths.VocabPath)
			_, _ = fmt.Fprintf(out, "merges:    %s\n", cfg.Paths.MergesPath)
			_, _ = fmt.Fprintf(out, "entries:   %d (%d from merges)\n", tok.VocabSize(), tok.MergesCount())
			_, err = fmt.Fprintf(out, "longest:   %q (%d chars)\n", longest, utf8.RuneCountInString(longest))
			return err
		},
	}

	return cmd
}
