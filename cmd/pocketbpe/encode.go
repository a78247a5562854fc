package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	var text string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "encode [text]",
		Short: "Encode text to token ids with a trained model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			input, err := readInputText(text, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tok, err := loadModel(cfg)
			if err != nil {
				return err
			}

			ids, err := tok.Encode(input, cfg.Train.SpecialTokens)
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ids)
			}

			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.Itoa(id)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
			return err
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to encode (overrides the positional argument)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit ids as a JSON array")

	return cmd
}

// readInputText resolves the input in flag > argument > stdin order.
func readInputText(flagText string, args []string, in io.Reader) (string, error) {
	if flagText != "" {
		return flagText, nil
	}
	if len(args) > 0 {
		return args[0], nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read text from stdin: %w", err)
	}
	return string(data), nil
}
