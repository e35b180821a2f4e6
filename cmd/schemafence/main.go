package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("schemafence version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("schemafence version %s-dev", version)
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "schemafence",
		Short:        "schemafence server and maintenance commands",
		Version:      versionString(),
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newMintTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
