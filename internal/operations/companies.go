package operations

import (
	"context"

	"query-router/internal/models"
)

func (s *Store) CompaniesByCountry(ctx context.Context, args []interface{}) (models.Result, error) {
	country, err := requiredString(args, 0, "country")
	if err != nil {
		return models.Result{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, country, industry
		FROM companies
		WHERE LOWER(country) = LOWER($1)
		ORDER BY name`, country)
	if err != nil {
		return models.Result{}, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var id int64
		var name, ctry, industry string
		if err := rows.Scan(&id, &name, &ctry, &industry); err != nil {
			return models.Result{}, err
		}
		out = append(out, models.Record{
			"id":       id,
			"name":     name,
			"country":  ctry,
			"industry": industry,
		})
	}
	if err := rows.Err(); err != nil {
		return models.Result{}, err
	}
	return models.RecordsResult(out), nil
}
