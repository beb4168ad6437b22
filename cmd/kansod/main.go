package main

import (
	"fmt"
	"os"

	"github.com/kanso-ai/kanso/internal/cli"
	"github.com/kanso-ai/kanso/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kansod",
		Short: "Kanso daemon and CLI",
		Long:  "Kanso daemon for running the embedding worker and managing fragment ingestion and consolidation",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.WorkerCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.ConsolidateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "worker")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
