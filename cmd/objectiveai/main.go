package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/objectiveai/engine/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "objectiveai",
	Short: "objectiveai multi-level voting and scoring engine",
	Long:  "objectiveai — a CLI for running LLM-ensemble vector completions and scoring functions, and for serving them over HTTP.",
	// SilenceUsage prevents printing usage on every error.
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("objectiveai version %s\n", version))

	rootCmd.AddCommand(cli.NewRunFunctionCmd())
	rootCmd.AddCommand(cli.NewRunVectorCompletionCmd())
	rootCmd.AddCommand(cli.NewEncodeRetryTokenCmd())
	rootCmd.AddCommand(cli.NewDecodeRetryTokenCmd())
	rootCmd.AddCommand(cli.NewServeCmd())
}
