package operations

import (
	"context"
	"time"

	"query-router/internal/models"
)

func (s *Store) TransactionsByDateRange(ctx context.Context, args []interface{}) (models.Result, error) {
	start, err := requiredString(args, 0, "startDate")
	if err != nil {
		return models.Result{}, err
	}
	end, err := requiredString(args, 1, "endDate")
	if err != nil {
		return models.Result{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, c.name, t.total_amount, t.transaction_date
		FROM transactions t
		JOIN companies c ON c.id = t.company_id
		WHERE t.transaction_date BETWEEN $1 AND $2
		ORDER BY t.transaction_date`, start, end)
	if err != nil {
		return models.Result{}, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var id int64
		var company string
		var amount float64
		var date time.Time
		if err := rows.Scan(&id, &company, &amount, &date); err != nil {
			return models.Result{}, err
		}
		out = append(out, models.Record{
			"id":      id,
			"company": company,
			"amount":  amount,
			"date":    date.Format("2006-01-02"),
		})
	}
	if err := rows.Err(); err != nil {
		return models.Result{}, err
	}
	return models.RecordsResult(out), nil
}

// RevenueSummary treats an absent bound as open-ended.
func (s *Store) RevenueSummary(ctx context.Context, args []interface{}) (models.Result, error) {
	start, err := optionalString(args, 0, "startDate")
	if err != nil {
		return models.Result{}, err
	}
	end, err := optionalString(args, 1, "endDate")
	if err != nil {
		return models.Result{}, err
	}

	var total, average float64
	var count int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0),
		       COUNT(*),
		       COALESCE(AVG(total_amount), 0)
		FROM transactions
		WHERE ($1::date IS NULL OR transaction_date >= $1::date)
		  AND ($2::date IS NULL OR transaction_date <= $2::date)`, start, end).Scan(&total, &count, &average)
	if err != nil {
		return models.Result{}, err
	}

	rec := models.Record{
		"totalRevenue":      total,
		"transactionCount":  count,
		"averageOrderValue": average,
	}
	if start != nil {
		rec["startDate"] = start
	}
	if end != nil {
		rec["endDate"] = end
	}
	return models.RecordResult(rec), nil
}
