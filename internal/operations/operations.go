// Package operations provides the data-retrieval callables registered in
// the operation catalog.
package operations

import (
	"database/sql"
	"errors"
	"fmt"

	"query-router/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

const (
	CategoryProducts     = "products"
	CategoryCompanies    = "companies"
	CategoryTransactions = "transactions"
)

var (
	ErrMissingParam = errors.New("missing required parameter")
	ErrBadParam     = errors.New("parameter has wrong type")
)

// Store binds the operation handlers to their backing stores.
type Store struct {
	db           *sql.DB
	es           *elasticsearch.Client
	productIndex string
}

func NewStore(db *sql.DB, es *elasticsearch.Client, productIndex string) *Store {
	if productIndex == "" {
		productIndex = "products"
	}
	return &Store{db: db, es: es, productIndex: productIndex}
}

// Definitions returns the full catalog contents. searchProducts is only
// included when an Elasticsearch client is configured.
func (s *Store) Definitions() []models.OperationDefinition {
	defs := []models.OperationDefinition{
		{
			Name:        "getTopSellingProducts",
			Description: "Lists the products with the most units sold, with revenue per product",
			Category:    CategoryProducts,
			Parameters: []models.Parameter{
				{Name: "limit", Type: models.ParamInteger, Description: "Number of products to return", DefaultValue: 10, Minimum: models.AtLeast(1)},
			},
			Examples: []string{
				"What are our top selling products?",
				"Show me the top 5 products",
				"Which products sell the most?",
				"best sellers this year",
			},
			Handler: s.TopSellingProducts,
		},
		{
			Name:        "getProductCount",
			Description: "Counts the products in the catalog",
			Category:    CategoryProducts,
			Examples: []string{
				"How many products do we have?",
				"Total number of products",
				"product count",
			},
			Handler: s.ProductCount,
		},
		{
			Name:        "getLowStockProducts",
			Description: "Lists products whose stock quantity is at or below a threshold",
			Category:    CategoryProducts,
			Parameters: []models.Parameter{
				{Name: "threshold", Type: models.ParamInteger, Description: "Maximum stock quantity to report", DefaultValue: 10, Minimum: models.AtLeast(0)},
			},
			Examples: []string{
				"Which products are low on stock?",
				"Products with fewer than 5 units left",
				"What do we need to reorder?",
			},
			Handler: s.LowStockProducts,
		},
		{
			Name:        "getCompaniesByCountry",
			Description: "Lists client companies located in a given country",
			Category:    CategoryCompanies,
			Parameters: []models.Parameter{
				{Name: "country", Type: models.ParamString, Required: true, Description: "Country name or code, e.g. USA"},
			},
			Examples: []string{
				"Show me companies from USA",
				"Which clients are based in Germany?",
				"List companies in France",
			},
			Handler: s.CompaniesByCountry,
		},
		{
			Name:        "getTransactionsByDateRange",
			Description: "Lists transactions between two dates, inclusive",
			Category:    CategoryTransactions,
			Parameters: []models.Parameter{
				{Name: "startDate", Type: models.ParamDate, Required: true, Description: "First day of the range (YYYY-MM-DD)"},
				{Name: "endDate", Type: models.ParamDate, Required: true, Description: "Last day of the range (YYYY-MM-DD)"},
			},
			Examples: []string{
				"Show transactions from January 2024",
				"What sales happened between March 1 and March 15?",
				"transactions last week",
			},
			Handler: s.TransactionsByDateRange,
		},
		{
			Name:        "getRevenueSummary",
			Description: "Summarises total revenue, transaction count and average order value, optionally within a date range",
			Category:    CategoryTransactions,
			Parameters: []models.Parameter{
				{Name: "startDate", Type: models.ParamDate, Description: "Optional first day (YYYY-MM-DD)"},
				{Name: "endDate", Type: models.ParamDate, Description: "Optional last day (YYYY-MM-DD)"},
			},
			Examples: []string{
				"What is our total revenue?",
				"How much did we make in 2023?",
				"average order value",
			},
			Handler: s.RevenueSummary,
		},
	}

	if s.es != nil {
		defs = append(defs, models.OperationDefinition{
			Name:        "searchProducts",
			Description: "Full-text search over product names, descriptions and categories",
			Category:    CategoryProducts,
			Parameters: []models.Parameter{
				{Name: "keyword", Type: models.ParamString, Required: true, Description: "Search terms"},
				{Name: "limit", Type: models.ParamInteger, Description: "Maximum number of hits", DefaultValue: 10, Minimum: models.AtLeast(1)},
			},
			Examples: []string{
				"Find products matching wireless headphones",
				"Do we sell anything called ergonomic chair?",
				"search for laptop stands",
			},
			Handler: s.SearchProducts,
		})
	}
	return defs
}

func argAt(args []interface{}, i int) interface{} {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func requiredString(args []interface{}, i int, name string) (string, error) {
	v := argAt(args, i)
	if v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", ErrBadParam, name)
	}
	return s, nil
}

// optionalString returns nil for an absent argument so it binds as SQL NULL.
func optionalString(args []interface{}, i int, name string) (interface{}, error) {
	v := argAt(args, i)
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadParam, name)
	}
	return s, nil
}

func intArg(args []interface{}, i int, name string, fallback int) (int, error) {
	switch v := argAt(args, i).(type) {
	case nil:
		return fallback, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrBadParam, name)
	}
}
