/*
Copyright © 2025 trandvq
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docsense",
	Short: "Local-first document intelligence engine",
	Long: `Docsense ingests raw document text, classifies and normalizes it into
a typed schema, indexes it for hybrid lexical and semantic retrieval, and
answers natural-language questions over the corpus with citations.

Run "docsense start" to serve the HTTP API, or "docsense ingest" /
"docsense batch-ingest" to load documents from the command line.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.yaml", "config file")
}
