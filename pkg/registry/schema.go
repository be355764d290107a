// pkg/registry/schema.go
package registry

// CatalogManifest is the published description of the operation catalog.
type CatalogManifest struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Operations  []Operation `json:"operations"`
}

type Operation struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Parameters  []Parameter            `json:"parameters"`
	Examples    []string               `json:"examples"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
	Tags        []string               `json:"tags"`
}

type Parameter struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Required     bool        `json:"required"`
	Description  string      `json:"description"`
	DefaultValue interface{} `json:"defaultValue,omitempty"`
	Minimum      *float64    `json:"minimum,omitempty"`
}

// Drift lists the differences between a manifest and the compiled catalog.
type Drift struct {
	OnlyInManifest []string `json:"onlyInManifest"`
	OnlyInCatalog  []string `json:"onlyInCatalog"`
	Changed        []string `json:"changed"`
}

func (d Drift) Empty() bool {
	return len(d.OnlyInManifest) == 0 && len(d.OnlyInCatalog) == 0 && len(d.Changed) == 0
}
