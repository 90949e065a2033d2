package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/objectiveai/engine/domain"
)

// NewEncodeRetryTokenCmd creates "encode-retry-token": joins a list of
// vector-completion ids (one per task, empty string for "no retry") into
// the opaque token domain.EncodeRetryToken produces.
func NewEncodeRetryTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode-retry-token [id-or-empty ...]",
		Short: "Encode a list of per-task vector-completion ids into a retry token",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := make(domain.RetryToken, len(args))
			for i, a := range args {
				if a == "" || a == "-" {
					continue
				}
				id := a
				token[i] = &id
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.EncodeRetryToken(token))
			return nil
		},
	}
}

// NewDecodeRetryTokenCmd creates "decode-retry-token": the inverse,
// printing one id per line ("-" for an unset slot).
func NewDecodeRetryTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode-retry-token <token>",
		Short: "Decode a retry token into its per-task vector-completion ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := domain.DecodeRetryToken(args[0])
			if err != nil {
				return exitError(exitInputParse, "decoding retry token: %v", err)
			}
			lines := make([]string, len(token))
			for i, id := range token {
				if id == nil {
					lines[i] = "-"
					continue
				}
				lines[i] = *id
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return nil
		},
	}
}
