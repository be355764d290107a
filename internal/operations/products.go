package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"query-router/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

func (s *Store) TopSellingProducts(ctx context.Context, args []interface{}) (models.Result, error) {
	limit, err := intArg(args, 0, "limit", 10)
	if err != nil {
		return models.Result{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.category,
		       SUM(ti.quantity) AS units_sold,
		       SUM(ti.quantity * ti.unit_price) AS revenue
		FROM products p
		JOIN transaction_items ti ON ti.product_id = p.id
		GROUP BY p.id, p.name, p.category
		ORDER BY units_sold DESC
		LIMIT $1`, limit)
	if err != nil {
		return models.Result{}, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var id int64
		var name, category string
		var unitsSold int64
		var revenue float64
		if err := rows.Scan(&id, &name, &category, &unitsSold, &revenue); err != nil {
			return models.Result{}, err
		}
		out = append(out, models.Record{
			"id":        id,
			"name":      name,
			"category":  category,
			"unitsSold": unitsSold,
			"revenue":   revenue,
		})
	}
	if err := rows.Err(); err != nil {
		return models.Result{}, err
	}
	return models.RecordsResult(out), nil
}

func (s *Store) ProductCount(ctx context.Context, _ []interface{}) (models.Result, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return models.Result{}, err
	}
	return models.ScalarResult(count), nil
}

func (s *Store) LowStockProducts(ctx context.Context, args []interface{}) (models.Result, error) {
	threshold, err := intArg(args, 0, "threshold", 10)
	if err != nil {
		return models.Result{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, stock_quantity
		FROM products
		WHERE stock_quantity <= $1
		ORDER BY stock_quantity ASC, name ASC`, threshold)
	if err != nil {
		return models.Result{}, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var id, stock int64
		var name, category string
		if err := rows.Scan(&id, &name, &category, &stock); err != nil {
			return models.Result{}, err
		}
		out = append(out, models.Record{
			"id":            id,
			"name":          name,
			"category":      category,
			"stockQuantity": stock,
		})
	}
	if err := rows.Err(); err != nil {
		return models.Result{}, err
	}
	return models.RecordsResult(out), nil
}

// SearchProducts runs a multi_match query against the product index.
func (s *Store) SearchProducts(ctx context.Context, args []interface{}) (models.Result, error) {
	keyword, err := requiredString(args, 0, "keyword")
	if err != nil {
		return models.Result{}, err
	}
	limit, err := intArg(args, 1, "limit", 10)
	if err != nil {
		return models.Result{}, err
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keyword,
				"fields": []string{"name^3", "description", "category"},
			},
		},
		"size": limit,
	})
	if err != nil {
		return models.Result{}, err
	}

	req := esapi.SearchRequest{
		Index: []string{s.productIndex},
		Body:  strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return models.Result{}, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return models.Result{}, fmt.Errorf("product search failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string                 `json:"_id"`
				Score  float64                `json:"_score"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.Result{}, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		rec := models.Record{"id": hit.ID, "score": hit.Score}
		for k, v := range hit.Source {
			rec[k] = v
		}
		out = append(out, rec)
	}
	return models.RecordsResult(out), nil
}
