// cmd/query-router/cmd_ask.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var suggestCategory string

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Print example questions",
	RunE:  runSuggest,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	suggestCmd.Flags().StringVar(&suggestCategory, "category", "", "only show examples for this category")
	rootCmd.AddCommand(askCmd, suggestCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.router.ProcessQuery(cmd.Context(), strings.Join(args, " "), nil)
	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Content)
	if resp.FunctionUsed != "" {
		fmt.Fprintf(os.Stderr, "\n(%s, confidence %.2f)\n", resp.FunctionUsed, *resp.Confidence)
	}
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	for _, s := range a.router.GetSuggestions(suggestCategory) {
		fmt.Println(s)
	}
	return nil
}
