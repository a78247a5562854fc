package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [id...]",
		Short: "Decode token ids back to text with a trained model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			ids, err := readIDs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tok, err := loadModel(cfg)
			if err != nil {
				return err
			}

			text, err := tok.Decode(ids)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	return cmd
}

// readIDs parses token ids from the arguments, or from whitespace-separated
// stdin when no arguments are given.
func readIDs(args []string, in io.Reader) ([]int, error) {
	fields := args
	if len(fields) == 0 {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read ids from stdin: %w", err)
		}
		fields = strings.Fields(string(data))
	}

	ids := make([]int, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
