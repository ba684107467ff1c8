// Command hydrosearch is the single binary for the search pipeline:
// serve runs the HTTP surface, worker runs one pipeline Worker, migrate
// applies catalog schema migrations. Grounded on cuemby/warren's
// cmd/warren cobra tree (root command + subcommands, persistent flags
// read back with cmd.Flags().Get*), generalized from warren's
// cluster/worker/service verb tree down to this repo's three verbs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hydrosearch",
	Short: "Asynchronous hydraulic-fitting natural-language search pipeline",
	Long: `hydrosearch ingests a free-text fitting query or a multi-line
batch, runs it through an LLM-backed classify/extract pipeline, looks
the result up in a relational catalog, and returns a pollable task
with a downloadable tabular artifact.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}
