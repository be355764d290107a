// Package catalog holds the immutable registry of routable operations.
package catalog

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	apperrors "query-router/internal/common/errors"
	"query-router/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	suggestionOperations  = 5
	suggestionsPerExample = 2
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Catalog is safe for concurrent reads; it is never mutated after New.
type Catalog struct {
	ops        []models.OperationDefinition
	byName     map[string]int
	categories []string
}

// New validates the definitions and builds the name index. Any problem is
// reported as a CATALOG_INVALID error listing every violation found.
func New(defs ...models.OperationDefinition) (*Catalog, error) {
	if problems := validate(defs); len(problems) > 0 {
		return nil, apperrors.NewCatalogInvalidError(strings.Join(problems, "; "))
	}

	c := &Catalog{
		ops:    make([]models.OperationDefinition, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	seen := map[string]bool{}
	for i, d := range defs {
		c.ops[i] = d
		c.byName[d.Name] = i
		if !seen[d.Category] {
			seen[d.Category] = true
			c.categories = append(c.categories, d.Category)
		}
	}
	return c, nil
}

// MustNew panics on an invalid catalog. Intended for package-level wiring.
func MustNew(defs ...models.OperationDefinition) *Catalog {
	c, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(name string) (models.OperationDefinition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return models.OperationDefinition{}, false
	}
	return c.ops[i], true
}

// Operations returns the definitions in declaration order.
func (c *Catalog) Operations() []models.OperationDefinition {
	out := make([]models.OperationDefinition, len(c.ops))
	copy(out, c.ops)
	return out
}

func (c *Catalog) Len() int { return len(c.ops) }

// Categories lists categories in first-seen order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// ByCategory matches case-insensitively. An empty category matches everything.
func (c *Catalog) ByCategory(category string) []models.OperationDefinition {
	if category == "" {
		return c.Operations()
	}
	var out []models.OperationDefinition
	for _, op := range c.ops {
		if strings.EqualFold(op.Category, category) {
			out = append(out, op)
		}
	}
	return out
}

// Suggestions takes two examples from each of the first five operations in
// the category, capped at limit.
func (c *Catalog) Suggestions(category string, limit int) []string {
	out := []string{}
	for i, op := range c.ByCategory(category) {
		if i >= suggestionOperations {
			break
		}
		for j, ex := range op.Examples {
			if j >= suggestionsPerExample || len(out) >= limit {
				break
			}
			out = append(out, ex)
		}
	}
	return out
}

func validate(defs []models.OperationDefinition) []string {
	var problems []string
	if len(defs) == 0 {
		return []string{"catalog has no operations"}
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	names := map[string]bool{}

	for i, d := range defs {
		label := d.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		if err := v.Struct(d); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range verrs {
					problems = append(problems, fmt.Sprintf("%s: %s failed %q", label, fe.Namespace(), fe.Tag()))
				}
			} else {
				problems = append(problems, fmt.Sprintf("%s: %v", label, err))
			}
		}

		if d.Name != "" {
			if names[d.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate operation name", label))
			}
			names[d.Name] = true
		}

		params := map[string]bool{}
		for _, p := range d.Parameters {
			if params[p.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate parameter %q", label, p.Name))
			}
			params[p.Name] = true

			if p.Required && p.HasDefault() {
				problems = append(problems, fmt.Sprintf("%s: required parameter %q must not declare a default", label, p.Name))
			}
			if p.HasDefault() && !CompatibleValue(p.Type, p.DefaultValue) {
				problems = append(problems, fmt.Sprintf("%s: default for %q is not a valid %s", label, p.Name, p.Type))
			}
			if p.Minimum != nil {
				if p.Type != models.ParamInteger && p.Type != models.ParamNumber {
					problems = append(problems, fmt.Sprintf("%s: minimum on non-numeric parameter %q", label, p.Name))
				} else if n, ok := toFloat(p.DefaultValue); ok && n < *p.Minimum {
					problems = append(problems, fmt.Sprintf("%s: default for %q is below its minimum", label, p.Name))
				}
			}
		}
	}

	sort.Strings(problems)
	return problems
}

// CompatibleValue reports whether v can be passed for a parameter of type t.
func CompatibleValue(t models.ParameterType, v interface{}) bool {
	switch t {
	case models.ParamString:
		_, ok := v.(string)
		return ok
	case models.ParamDate:
		s, ok := v.(string)
		return ok && datePattern.MatchString(s)
	case models.ParamBoolean:
		_, ok := v.(bool)
		return ok
	case models.ParamInteger:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == math.Trunc(n)
		}
		return false
	case models.ParamNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
