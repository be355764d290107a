// cmd/query-router/cmd_catalog.go
package main

import (
	"fmt"
	"time"

	"query-router/pkg/registry"

	"github.com/spf13/cobra"
)

var manifestPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Export or check the catalog manifest",
	Long: `The manifest is a JSON description of every operation the router can call.

Available subcommands:
  export   - write the compiled catalog to the manifest file
  validate - compare the manifest with the compiled catalog`,
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the compiled catalog to the manifest file",
	RunE:  runCatalogExport,
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report operations that differ between the manifest and the catalog",
	RunE:  runCatalogValidate,
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&manifestPath, "path", "configs/catalog.json", "path to the manifest file")
	catalogCmd.AddCommand(catalogExportCmd, catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	m := registry.FromCatalog(a.catalog, a.cfg.App.Version, time.Now())
	if err := registry.SaveManifest(m, manifestPath); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	fmt.Printf("Exported %d operations to %s\n", len(m.Operations), manifestPath)
	return nil
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := registry.LoadManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	if err := registry.Validate(m); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	drift := registry.Compare(m, a.catalog)
	if drift.Empty() {
		fmt.Println("Manifest matches the catalog.")
		return nil
	}
	for _, name := range drift.OnlyInManifest {
		fmt.Printf("only in manifest: %s\n", name)
	}
	for _, name := range drift.OnlyInCatalog {
		fmt.Printf("only in catalog:  %s\n", name)
	}
	for _, name := range drift.Changed {
		fmt.Printf("changed:          %s\n", name)
	}
	return fmt.Errorf("manifest has drifted from the catalog")
}
