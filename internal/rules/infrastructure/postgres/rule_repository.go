package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rules "gridwatch/internal/rules/domain"
)

const ruleColumns = `id, name, description, severity, category, rule_type, enabled,
	conditions, logical_operator, time_window_minutes, aggregation_type,
	applies_to, site_id, region_id, trigger_count, created_at, updated_at`

// RuleRepository is a Postgres repository for rule definitions.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository constructs a repository.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create inserts a rule definition.
func (r *RuleRepository) Create(ctx context.Context, rule *rules.Rule) error {
	if r == nil || r.db == nil {
		return errors.New("rule repo: nil db")
	}
	if rule == nil {
		return errors.New("rule repo: nil rule")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = rule.CreatedAt
	}
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO rules (
	id, name, description, severity, category, rule_type, enabled,
	conditions, logical_operator, time_window_minutes, aggregation_type,
	applies_to, site_id, region_id, trigger_count, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11,
	$12, $13, $14, $15, $16, $17
)`, rule.ID, rule.Name, rule.Description, rule.Severity, rule.Category, string(rule.Type), rule.Enabled,
		conditions, rule.LogicalOperator, rule.WindowMinutes, rule.Aggregation,
		rule.AppliesTo, rule.SiteID, rule.RegionID, rule.TriggerCount, rule.CreatedAt, rule.UpdatedAt)
	return err
}

// GetByID loads a rule by id.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*rules.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	if id == "" {
		return nil, errors.New("rule repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+ruleColumns+`
FROM rules
WHERE id = $1
LIMIT 1`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// List returns rules ordered by creation time, optionally narrowed to
// one category. Disabled rules are included.
func (r *RuleRepository) List(ctx context.Context, category string) ([]rules.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	query := `
SELECT ` + ruleColumns + `
FROM rules`
	args := []any{}
	if category != "" {
		query += `
WHERE category = $1`
		args = append(args, category)
	}
	query += `
ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListEnabled returns every enabled rule.
func (r *RuleRepository) ListEnabled(ctx context.Context) ([]rules.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+ruleColumns+`
FROM rules
WHERE enabled = TRUE
ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// IncrementTriggerCount bumps the trigger counter for a rule.
func (r *RuleRepository) IncrementTriggerCount(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("rule repo: nil db")
	}
	if id == "" {
		return errors.New("rule repo: invalid query")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE rules
SET trigger_count = trigger_count + 1, updated_at = $1
WHERE id = $2`, time.Now().UTC(), id)
	return err
}

// Stats summarizes the stored catalog by type, category and severity.
func (r *RuleRepository) Stats(ctx context.Context) (rules.RuleStats, error) {
	stats := rules.RuleStats{
		ByType:     make(map[string]int),
		ByCategory: make(map[string]int),
		BySeverity: make(map[string]int),
	}
	if r == nil || r.db == nil {
		return stats, errors.New("rule repo: nil db")
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules`).Scan(&stats.Total); err != nil {
		return stats, err
	}
	var err error
	if stats.ByType, err = r.countBy(ctx, "rule_type"); err != nil {
		return stats, err
	}
	if stats.ByCategory, err = r.countBy(ctx, "category"); err != nil {
		return stats, err
	}
	if stats.BySeverity, err = r.countBy(ctx, "severity"); err != nil {
		return stats, err
	}
	return stats, nil
}

// SeedBuiltins inserts catalog rules that are not present yet and
// returns how many it added. Existing rows are left untouched, so
// operator edits survive restarts.
func (r *RuleRepository) SeedBuiltins(ctx context.Context, catalog []rules.Rule) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("rule repo: nil db")
	}
	seeded := 0
	for i := range catalog {
		rule := catalog[i]
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = time.Now().UTC()
		}
		if rule.UpdatedAt.IsZero() {
			rule.UpdatedAt = rule.CreatedAt
		}
		conditions, err := json.Marshal(rule.Conditions)
		if err != nil {
			return seeded, err
		}
		result, err := r.db.ExecContext(ctx, `
INSERT INTO rules (
	id, name, description, severity, category, rule_type, enabled,
	conditions, logical_operator, time_window_minutes, aggregation_type,
	applies_to, site_id, region_id, trigger_count, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11,
	$12, $13, $14, $15, $16, $17
)
ON CONFLICT (id) DO NOTHING`,
			rule.ID, rule.Name, rule.Description, rule.Severity, rule.Category, string(rule.Type), rule.Enabled,
			conditions, rule.LogicalOperator, rule.WindowMinutes, rule.Aggregation,
			rule.AppliesTo, rule.SiteID, rule.RegionID, rule.TriggerCount, rule.CreatedAt, rule.UpdatedAt)
		if err != nil {
			return seeded, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return seeded, err
		}
		seeded += int(affected)
	}
	return seeded, nil
}

func (r *RuleRepository) countBy(ctx context.Context, column string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s, COUNT(*)
FROM rules
GROUP BY %s`, column, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

type ruleScanner interface {
	Scan(dest ...any) error
}

func scanRule(row ruleScanner) (*rules.Rule, error) {
	var rule rules.Rule
	var ruleType string
	var conditions []byte
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.Severity,
		&rule.Category,
		&ruleType,
		&rule.Enabled,
		&conditions,
		&rule.LogicalOperator,
		&rule.WindowMinutes,
		&rule.Aggregation,
		&rule.AppliesTo,
		&rule.SiteID,
		&rule.RegionID,
		&rule.TriggerCount,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.Type = rules.RuleType(ruleType)
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, err
		}
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	rule.UpdatedAt = rule.UpdatedAt.UTC()
	return &rule, nil
}

func collectRules(rows *sql.Rows) ([]rules.Rule, error) {
	var result []rules.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
