// cmd/query-router/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "query-router",
	Short: "Answer natural-language business questions by routing them to catalog operations",
	Long: `query-router classifies a question, matches it to an operation in the
catalog through vector search over example phrasings, extracts the
operation's arguments, runs it and phrases the result.

Available commands:
  serve    - HTTP API (and optionally the Zeebe worker)
  index    - build the phrase pattern index in Weaviate
  ask      - answer one question from the command line
  suggest  - print example questions
  catalog  - export or check the catalog manifest`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (default: ./configs/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
