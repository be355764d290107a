// Package vectordb stores and searches phrase patterns in Weaviate.
package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"query-router/internal/common/config"
	"query-router/internal/models"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wvmodels "github.com/weaviate/weaviate/entities/models"
)

// patternNamespace seeds deterministic object ids so re-indexing the same
// phrasing overwrites instead of duplicating.
var patternNamespace = uuid.MustParse("6f0c8f52-3c1e-4f7a-9a55-1d7f3b0e2c41")

var patternProperties = []string{"functionName", "prompt", "description", "category", "parameterSchema", "source"}

// WeaviateIndex implements pattern search and upload against one class.
type WeaviateIndex struct {
	client    *weaviate.Client
	className string
}

func NewWeaviateIndex(cfg config.WeaviateConfig) (*WeaviateIndex, error) {
	wcfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &WeaviateIndex{client: client, className: cfg.PatternClass}, nil
}

// Ready reports whether the Weaviate node accepts requests.
func (w *WeaviateIndex) Ready(ctx context.Context) error {
	ok, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate ready check: %w", err)
	}
	if !ok {
		return fmt.Errorf("weaviate is not ready")
	}
	return nil
}

// EnsureSchema creates the pattern class when missing. With recreate the
// existing class and all its objects are dropped first.
func (w *WeaviateIndex) EnsureSchema(ctx context.Context, recreate bool) error {
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(w.className).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", w.className, err)
	}

	if exists && recreate {
		if err := w.client.Schema().ClassDeleter().WithClassName(w.className).Do(ctx); err != nil {
			return fmt.Errorf("delete class %s: %w", w.className, err)
		}
		exists = false
	}
	if exists {
		return nil
	}

	props := make([]*wvmodels.Property, 0, len(patternProperties))
	for _, name := range patternProperties {
		props = append(props, &wvmodels.Property{Name: name, DataType: []string{"text"}})
	}

	class := &wvmodels.Class{
		Class:       w.className,
		Description: "Example phrasings of catalog operations",
		Vectorizer:  "none",
		Properties:  props,
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", w.className, err)
	}
	return nil
}

// Upsert writes patterns with their precomputed vectors in one batch and
// returns how many objects were stored.
func (w *WeaviateIndex) Upsert(ctx context.Context, patterns []models.PhrasePattern, vectors [][]float32) (int, error) {
	if len(patterns) != len(vectors) {
		return 0, fmt.Errorf("got %d patterns but %d vectors", len(patterns), len(vectors))
	}
	if len(patterns) == 0 {
		return 0, nil
	}

	objects := make([]*wvmodels.Object, len(patterns))
	for i, p := range patterns {
		objects[i] = toObject(w.className, p, vectors[i])
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("batch upsert: %w", err)
	}

	var failures []string
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			failures = append(failures, e.Message)
		}
	}
	stored := len(resp) - len(failures)
	if len(failures) > 0 {
		return stored, fmt.Errorf("batch upsert: %d objects failed: %s", len(failures), strings.Join(failures, "; "))
	}
	return stored, nil
}

// Search returns up to limit patterns whose certainty is at least minCertainty.
func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, minCertainty float64, limit int) ([]models.Candidate, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector).
		WithCertainty(float32(minCertainty))

	fields := make([]graphql.Field, 0, len(patternProperties)+1)
	for _, name := range patternProperties {
		fields = append(fields, graphql.Field{Name: name})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}})

	resp, err := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near vector search: %w", err)
	}

	candidates, err := decodeCandidates(resp, w.className)
	if err != nil {
		return nil, err
	}

	// Server-side certainty filtering works on float32; re-check the floor.
	out := candidates[:0]
	for _, c := range candidates {
		if c.Certainty >= minCertainty {
			out = append(out, c)
		}
	}
	return out, nil
}

// PatternID is the deterministic object id for a phrasing.
func PatternID(p models.PhrasePattern) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(patternNamespace, []byte(p.FunctionName+"\x00"+p.Prompt)).String())
}

func toObject(className string, p models.PhrasePattern, vector []float32) *wvmodels.Object {
	return &wvmodels.Object{
		Class: className,
		ID:    PatternID(p),
		Properties: map[string]interface{}{
			"functionName":    p.FunctionName,
			"prompt":          p.Prompt,
			"description":     p.Description,
			"category":        p.Category,
			"parameterSchema": p.ParameterSchema,
			"source":          p.Source,
		},
		Vector: wvmodels.C11yVector(vector),
	}
}

type patternHit struct {
	models.PhrasePattern
	Additional struct {
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}

func decodeCandidates(resp *wvmodels.GraphQLResponse, className string) ([]models.Candidate, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty graphql response")
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	raw, err := json.Marshal(resp.Data["Get"])
	if err != nil {
		return nil, fmt.Errorf("re-encode graphql data: %w", err)
	}
	var byClass map[string][]patternHit
	if err := json.Unmarshal(raw, &byClass); err != nil {
		return nil, fmt.Errorf("decode graphql data: %w", err)
	}

	hits := byClass[className]
	out := make([]models.Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.Candidate{Pattern: h.PhrasePattern, Certainty: h.Additional.Certainty})
	}
	return out, nil
}
