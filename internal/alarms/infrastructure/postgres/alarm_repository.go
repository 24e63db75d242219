package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	alarms "gridwatch/internal/alarms/domain"
)

const alarmColumns = `id, timestamp, site, region, severity, category, message, status,
	rule_id, asset_id, conditions_met, total_conditions, samples, rate_of_change,
	acknowledged_at, acknowledged_by, resolved_at, resolved_by, resolution_notes,
	archived_at, created_at, updated_at`

// AlarmRepository is a Postgres repository for alarms.
type AlarmRepository struct {
	db *sql.DB
}

// NewAlarmRepository constructs a repository.
func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

// Create inserts a new alarm.
func (r *AlarmRepository) Create(ctx context.Context, alarm *alarms.Alarm) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	if alarm == nil {
		return errors.New("alarm repo: nil alarm")
	}
	if alarm.ID == "" || alarm.RuleID == "" || alarm.AssetID == "" {
		return errors.New("alarm repo: missing fields")
	}
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = time.Now().UTC()
	}
	if alarm.UpdatedAt.IsZero() {
		alarm.UpdatedAt = alarm.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alarms (
	id, timestamp, site, region, severity, category, message, status,
	rule_id, asset_id, conditions_met, total_conditions, samples, rate_of_change,
	acknowledged_at, acknowledged_by, resolved_at, resolved_by, resolution_notes,
	archived_at, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8,
	$9, $10, $11, $12, $13, $14,
	$15, $16, $17, $18, $19,
	$20, $21, $22
)`,
		alarm.ID,
		alarm.Timestamp,
		alarm.Site,
		alarm.Region,
		alarm.Severity,
		alarm.Category,
		alarm.Message,
		alarm.Status,
		alarm.RuleID,
		alarm.AssetID,
		nullableInt(alarm.ConditionsMet),
		nullableInt(alarm.TotalConditions),
		nullableInt(alarm.Samples),
		nullableFloat(alarm.RateOfChange),
		nullableTime(alarm.AcknowledgedAt),
		nullableString(alarm.AcknowledgedBy),
		nullableTime(alarm.ResolvedAt),
		nullableString(alarm.ResolvedBy),
		nullableString(alarm.ResolutionNotes),
		nullableTime(alarm.ArchivedAt),
		alarm.CreatedAt,
		alarm.UpdatedAt,
	)
	return err
}

// GetByID fetches an alarm by id.
func (r *AlarmRepository) GetByID(ctx context.Context, id string) (*alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+alarmColumns+`
FROM alarms
WHERE id = $1`, id)
	return scanAlarm(row)
}

// HasOpen reports whether an active or acknowledged alarm exists for the
// (asset, rule, severity) fingerprint.
func (r *AlarmRepository) HasOpen(ctx context.Context, assetID, ruleID, severity string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("alarm repo: nil db")
	}
	if assetID == "" || ruleID == "" || severity == "" {
		return false, errors.New("alarm repo: invalid query")
	}
	var one int
	err := r.db.QueryRowContext(ctx, `
SELECT 1
FROM alarms
WHERE asset_id = $1 AND rule_id = $2 AND severity = $3
	AND status IN ('active', 'acknowledged')
LIMIT 1`, assetID, ruleID, severity).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkAcknowledged marks an alarm as acknowledged.
func (r *AlarmRepository) MarkAcknowledged(ctx context.Context, id, by string, ackedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE alarms
SET status = $1, acknowledged_at = $2, acknowledged_by = $3, updated_at = $4
WHERE id = $5`, alarms.StatusAcknowledged, ackedAt, nullableString(by), ackedAt, id)
	return err
}

// MarkResolved marks an alarm as resolved.
func (r *AlarmRepository) MarkResolved(ctx context.Context, id, by, notes string, resolvedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE alarms
SET status = $1, resolved_at = $2, resolved_by = $3, resolution_notes = $4, updated_at = $5
WHERE id = $6`, alarms.StatusResolved, resolvedAt, nullableString(by), nullableString(notes), resolvedAt, id)
	return err
}

// ArchiveOpen archives every active or acknowledged alarm and returns the
// number of rows affected.
func (r *AlarmRepository) ArchiveOpen(ctx context.Context, archivedAt time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("alarm repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE alarms
SET status = $1, archived_at = $2, updated_at = $3
WHERE status IN ('active', 'acknowledged')`, alarms.StatusArchived, archivedAt, archivedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// List returns alarms matching the filter, newest first. Archived alarms
// are excluded unless the filter asks for them or names the status.
func (r *AlarmRepository) List(ctx context.Context, filter alarms.ListFilter) ([]alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}

	query := `
SELECT ` + alarmColumns + `
FROM alarms
WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	} else if !filter.IncludeArchived {
		args = append(args, alarms.StatusArchived)
		query += fmt.Sprintf(" AND status <> $%d", len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Site != "" {
		args = append(args, filter.Site)
		query += fmt.Sprintf(" AND site = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC())
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC())
		query += fmt.Sprintf(" AND timestamp < $%d", len(args))
	}
	query += " ORDER BY timestamp DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alarms.Alarm
	for rows.Next() {
		alarm, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountActiveBySite returns active alarm counts grouped by site label.
func (r *AlarmRepository) CountActiveBySite(ctx context.Context) (map[string]int, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT site, COUNT(*)
FROM alarms
WHERE status = 'active' AND site <> ''
GROUP BY site`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var site string
		var count int
		if err := rows.Scan(&site, &count); err != nil {
			return nil, err
		}
		counts[site] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

type alarmScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row alarmScanner) (*alarms.Alarm, error) {
	var alarm alarms.Alarm
	var conditionsMet, totalConditions, samples sql.NullInt64
	var rateOfChange sql.NullFloat64
	var acknowledgedAt, resolvedAt, archivedAt sql.NullTime
	var acknowledgedBy, resolvedBy, resolutionNotes sql.NullString
	if err := row.Scan(
		&alarm.ID,
		&alarm.Timestamp,
		&alarm.Site,
		&alarm.Region,
		&alarm.Severity,
		&alarm.Category,
		&alarm.Message,
		&alarm.Status,
		&alarm.RuleID,
		&alarm.AssetID,
		&conditionsMet,
		&totalConditions,
		&samples,
		&rateOfChange,
		&acknowledgedAt,
		&acknowledgedBy,
		&resolvedAt,
		&resolvedBy,
		&resolutionNotes,
		&archivedAt,
		&alarm.CreatedAt,
		&alarm.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	alarm.Timestamp = alarm.Timestamp.UTC()
	alarm.CreatedAt = alarm.CreatedAt.UTC()
	alarm.UpdatedAt = alarm.UpdatedAt.UTC()
	if conditionsMet.Valid {
		alarm.ConditionsMet = int(conditionsMet.Int64)
	}
	if totalConditions.Valid {
		alarm.TotalConditions = int(totalConditions.Int64)
	}
	if samples.Valid {
		alarm.Samples = int(samples.Int64)
	}
	if rateOfChange.Valid {
		value := rateOfChange.Float64
		alarm.RateOfChange = &value
	}
	if acknowledgedAt.Valid {
		alarm.AcknowledgedAt = acknowledgedAt.Time.UTC()
	}
	if acknowledgedBy.Valid {
		alarm.AcknowledgedBy = acknowledgedBy.String
	}
	if resolvedAt.Valid {
		alarm.ResolvedAt = resolvedAt.Time.UTC()
	}
	if resolvedBy.Valid {
		alarm.ResolvedBy = resolvedBy.String
	}
	if resolutionNotes.Valid {
		alarm.ResolutionNotes = resolutionNotes.String
	}
	if archivedAt.Valid {
		alarm.ArchivedAt = archivedAt.Time.UTC()
	}
	return &alarm, nil
}

func nullableTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullableInt(value int) sql.NullInt64 {
	if value == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(value), Valid: true}
}

func nullableFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}
