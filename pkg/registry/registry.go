// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"time"

	"query-router/internal/catalog"
	"query-router/internal/common/validation"
	"query-router/internal/models"
)

func LoadManifest(path string) (*CatalogManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m CatalogManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

func SaveManifest(m *CatalogManifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// FromCatalog describes every operation in cat.
func FromCatalog(cat *catalog.Catalog, version string, now time.Time) *CatalogManifest {
	m := &CatalogManifest{
		Version:     version,
		LastUpdated: now.UTC().Format(time.RFC3339),
		Operations:  []Operation{},
	}
	for _, op := range cat.Operations() {
		m.Operations = append(m.Operations, describe(op))
	}
	return m
}

func describe(op models.OperationDefinition) Operation {
	params := make([]Parameter, len(op.Parameters))
	required := false
	for i, p := range op.Parameters {
		params[i] = Parameter{
			Name:         p.Name,
			Type:         string(p.Type),
			Required:     p.Required,
			Description:  p.Description,
			DefaultValue: p.DefaultValue,
			Minimum:      p.Minimum,
		}
		required = required || p.Required
	}

	var schema map[string]interface{}
	_ = json.Unmarshal([]byte(validation.SchemaFor(op.Parameters).Snapshot()), &schema)

	codes := []string{"OPERATION_FAILED", "OPERATION_TIMEOUT", "INVALID_PARAMETERS"}
	if required {
		codes = append(codes, "MISSING_PARAMETERS")
	}

	return Operation{
		Name:        op.Name,
		Description: op.Description,
		Category:    op.Category,
		Parameters:  params,
		Examples:    append([]string{}, op.Examples...),
		InputSchema: schema,
		ErrorCodes:  codes,
		Tags:        []string{op.Category},
	}
}

// Validate checks a manifest on its own: it must list operations with
// unique, non-empty names and at least one example each.
func Validate(m *CatalogManifest) error {
	if len(m.Operations) == 0 {
		return fmt.Errorf("manifest contains no operations")
	}

	names := make(map[string]bool)
	for _, op := range m.Operations {
		if op.Name == "" {
			return fmt.Errorf("operation missing required field: name")
		}
		if names[op.Name] {
			return fmt.Errorf("duplicate operation name: %s", op.Name)
		}
		names[op.Name] = true

		if op.Category == "" {
			return fmt.Errorf("operation %s missing required field: category", op.Name)
		}
		if len(op.Examples) == 0 {
			return fmt.Errorf("operation %s has no examples", op.Name)
		}
	}
	return nil
}

// Compare reports operations present on one side only, and operations
// whose parameter list or examples differ.
func Compare(m *CatalogManifest, cat *catalog.Catalog) Drift {
	drift := Drift{OnlyInManifest: []string{}, OnlyInCatalog: []string{}, Changed: []string{}}

	inManifest := make(map[string]Operation, len(m.Operations))
	for _, op := range m.Operations {
		inManifest[op.Name] = op
	}

	for _, op := range cat.Operations() {
		published, ok := inManifest[op.Name]
		if !ok {
			drift.OnlyInCatalog = append(drift.OnlyInCatalog, op.Name)
			continue
		}
		delete(inManifest, op.Name)

		current := describe(op)
		if !sameParameters(published.Parameters, current.Parameters) || !reflect.DeepEqual(published.Examples, current.Examples) {
			drift.Changed = append(drift.Changed, op.Name)
		}
	}
	for name := range inManifest {
		drift.OnlyInManifest = append(drift.OnlyInManifest, name)
	}

	sort.Strings(drift.OnlyInManifest)
	sort.Strings(drift.OnlyInCatalog)
	sort.Strings(drift.Changed)
	return drift
}

// sameParameters ignores default values, which do not survive a JSON round
// trip with their Go types intact.
func sameParameters(a, b []Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Type != b[i].Type || a[i].Required != b[i].Required {
			return false
		}
	}
	return true
}
