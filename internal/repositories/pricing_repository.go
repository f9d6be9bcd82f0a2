package repositories

import (
	"context"
	"fmt"
	"strings"

	"gaming_lounge_backend/internal/models"
)

// pgPricingRepository keeps both pricing tables in pricing_rules (kind column)
// and the happy-hour windows in happy_hour_configs.
type pgPricingRepository struct {
	ex SQLExecutor
}

func (r *pgPricingRepository) ListRules(ctx context.Context, category string, kind models.RuleKind) ([]models.PricingRule, error) {
	var conditions []string
	var args []interface{}
	if category != "" {
		args = append(args, category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if kind != "" {
		args = append(args, kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT id, kind, category, duration_minutes, person_count, price, updated_at FROM pricing_rules")
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY category, kind, duration_minutes, person_count")

	rows, err := r.ex.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, mapPQError(err, "listing pricing rules")
	}
	defer rows.Close()

	rules := []models.PricingRule{}
	for rows.Next() {
		var rule models.PricingRule
		if err := rows.Scan(&rule.ID, &rule.Kind, &rule.Category, &rule.DurationMinutes,
			&rule.PersonCount, &rule.Price, &rule.UpdatedAt); err != nil {
			return nil, mapPQError(err, "scanning pricing rule")
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "iterating pricing rules")
	}
	return rules, nil
}

// UpsertRule replaces the price of an existing (kind, category, duration, persons) row.
func (r *pgPricingRepository) UpsertRule(ctx context.Context, rule *models.PricingRule) error {
	query := `INSERT INTO pricing_rules (id, kind, category, duration_minutes, person_count, price, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (kind, category, duration_minutes, person_count)
	          DO UPDATE SET price = EXCLUDED.price, updated_at = EXCLUDED.updated_at
	          RETURNING id`
	err := r.ex.QueryRowContext(ctx, query, rule.ID, rule.Kind, rule.Category, rule.DurationMinutes,
		rule.PersonCount, rule.Price, rule.UpdatedAt).Scan(&rule.ID)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("saving %s rule for %s", rule.Kind, rule.Category))
	}
	return nil
}

func (r *pgPricingRepository) DeleteRule(ctx context.Context, id string) error {
	res, err := r.ex.ExecContext(ctx, "DELETE FROM pricing_rules WHERE id = $1", id)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("deleting pricing rule %s", id))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgPricingRepository) ListHappyHours(ctx context.Context, category string) ([]models.HappyHourConfig, error) {
	query := "SELECT id, category, start_time, end_time, enabled, updated_at FROM happy_hour_configs"
	var args []interface{}
	if category != "" {
		query += " WHERE category = $1"
		args = append(args, category)
	}
	query += " ORDER BY category, start_time"

	rows, err := r.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapPQError(err, "listing happy hours")
	}
	defer rows.Close()

	configs := []models.HappyHourConfig{}
	for rows.Next() {
		var h models.HappyHourConfig
		if err := rows.Scan(&h.ID, &h.Category, &h.StartTime, &h.EndTime, &h.Enabled, &h.UpdatedAt); err != nil {
			return nil, mapPQError(err, "scanning happy hour")
		}
		configs = append(configs, h)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "iterating happy hours")
	}
	return configs, nil
}

func (r *pgPricingRepository) UpsertHappyHour(ctx context.Context, cfg *models.HappyHourConfig) error {
	query := `INSERT INTO happy_hour_configs (id, category, start_time, end_time, enabled, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (category, start_time)
	          DO UPDATE SET end_time = EXCLUDED.end_time, enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at
	          RETURNING id`
	err := r.ex.QueryRowContext(ctx, query, cfg.ID, cfg.Category, cfg.StartTime, cfg.EndTime,
		cfg.Enabled, cfg.UpdatedAt).Scan(&cfg.ID)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("saving happy hour for %s", cfg.Category))
	}
	return nil
}
