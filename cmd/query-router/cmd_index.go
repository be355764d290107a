// cmd/query-router/cmd_index.go
package main

import (
	"encoding/json"
	"os"

	"query-router/internal/common/config"
	"query-router/internal/indexer"

	"github.com/spf13/cobra"
)

var indexRecreate bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the phrase pattern index from the catalog examples",
	Long: `Embed every catalog example, plus paraphrases written by the language
model, and upload them to Weaviate. Pattern ids are derived from their
text, so re-running only adds what is new. --recreate drops the class first.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRecreate, "recreate", false, "drop and recreate the Weaviate class")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Indexer
	cfg.Recreate = cfg.Recreate || indexRecreate

	ix := indexer.New(cfg, config.GetDuration(a.cfg.Router.FallbackTimeout), a.catalog, a.generator, a.embedder, a.index, a.log)
	stats, err := ix.Run(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
