// Command rosterctl is the operator CLI for the roster service.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

// errRowsInvalid makes validate exit with status 2 after its report.
var errRowsInvalid = errors.New("file has invalid rows")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errRowsInvalid) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Operator tools for the school roster service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}
