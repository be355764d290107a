// Package catalogtest builds a small operation catalog whose handlers record
// the arguments they receive.
package catalogtest

import (
	"context"
	"sync"

	"query-router/internal/catalog"
	"query-router/internal/models"
)

// Recorder captures handler invocations per operation.
type Recorder struct {
	mu    sync.Mutex
	calls map[string][][]interface{}

	// Results overrides what a handler returns, keyed by operation name.
	Results map[string]models.Result
	// Errors makes a handler fail, keyed by operation name.
	Errors map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{
		calls:   map[string][][]interface{}{},
		Results: map[string]models.Result{},
		Errors:  map[string]error{},
	}
}

// Calls returns the argument lists passed to the named operation.
func (r *Recorder) Calls(name string) [][]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]interface{}(nil), r.calls[name]...)
}

func (r *Recorder) handler(name string, fallback models.Result) models.HandlerFunc {
	return func(ctx context.Context, args []interface{}) (models.Result, error) {
		r.mu.Lock()
		copied := make([]interface{}, len(args))
		copy(copied, args)
		r.calls[name] = append(r.calls[name], copied)
		res, ok := r.Results[name]
		err := r.Errors[name]
		r.mu.Unlock()

		if err != nil {
			return models.Result{}, err
		}
		if !ok {
			res = fallback
		}
		return res, nil
	}
}

// New returns a catalog with getTopSellingProducts(limit=10),
// getProductCount(), getCompaniesByCountry(country) and
// getTransactionsByDateRange(startDate, endDate).
func New(r *Recorder) *catalog.Catalog {
	return catalog.MustNew(
		models.OperationDefinition{
			Name:        "getTopSellingProducts",
			Description: "Products ranked by units sold",
			Category:    "products",
			Parameters: []models.Parameter{
				{Name: "limit", Type: models.ParamInteger, Description: "Number of products to return", DefaultValue: 10, Minimum: models.AtLeast(1)},
			},
			Examples: []string{"top 5 products", "best selling products", "what sells the most"},
			Handler: r.handler("getTopSellingProducts", models.RecordsResult([]models.Record{
				{"name": "Widget", "sold": 120},
				{"name": "Gadget", "sold": 95},
				{"name": "Gizmo", "sold": 40},
			})),
		},
		models.OperationDefinition{
			Name:        "getProductCount",
			Description: "Total number of products",
			Category:    "products",
			Examples:    []string{"how many products do we have", "product count"},
			Handler:     r.handler("getProductCount", models.ScalarResult(42)),
		},
		models.OperationDefinition{
			Name:        "getCompaniesByCountry",
			Description: "Companies located in a country",
			Category:    "companies",
			Parameters: []models.Parameter{
				{Name: "country", Type: models.ParamString, Required: true, Description: "Country name or code"},
			},
			Examples: []string{"companies from USA", "which companies are in Germany"},
			Handler: r.handler("getCompaniesByCountry", models.RecordsResult([]models.Record{
				{"name": "Acme", "country": "USA"},
			})),
		},
		models.OperationDefinition{
			Name:        "getTransactionsByDateRange",
			Description: "Transactions between two dates",
			Category:    "transactions",
			Parameters: []models.Parameter{
				{Name: "startDate", Type: models.ParamDate, Required: true, Description: "Inclusive start date"},
				{Name: "endDate", Type: models.ParamDate, Required: true, Description: "Inclusive end date"},
			},
			Examples: []string{"transactions in March 2024", "sales between January and June"},
			Handler:  r.handler("getTransactionsByDateRange", models.RecordsResult(nil)),
		},
	)
}
