package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	telemetry "gridwatch/internal/telemetry/domain"
)

const defaultReadingsTable = "readings"

// ReadingRepository is a Postgres implementation for asset readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ReadingRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewReadingRepository constructs a repository with default table name.
func NewReadingRepository(db *sql.DB, opts ...RepositoryOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Insert stores one reading with its raw field payload.
func (r *ReadingRepository) Insert(ctx context.Context, reading *telemetry.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if reading == nil || reading.AssetID == "" || reading.Timestamp.IsZero() {
		return errors.New("reading repo: invalid reading")
	}
	payload, err := json.Marshal(reading.Fields)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (asset_id, timestamp, payload)
VALUES ($1, $2, $3)`, r.table)
	_, err = r.db.ExecContext(ctx, query, reading.AssetID, reading.Timestamp.UTC(), payload)
	return err
}

// Latest returns the most recent reading for an asset, or nil when the
// asset has never reported.
func (r *ReadingRepository) Latest(ctx context.Context, assetID string) (*telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if assetID == "" {
		return nil, errors.New("reading repo: asset id required")
	}
	query := fmt.Sprintf(`
SELECT asset_id, timestamp, payload
FROM %s
WHERE asset_id = $1
ORDER BY timestamp DESC
LIMIT 1`, r.table)
	reading, err := scanReading(r.db.QueryRowContext(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reading, nil
}

// Previous returns the reading immediately before the latest one, or nil
// when fewer than two readings exist.
func (r *ReadingRepository) Previous(ctx context.Context, assetID string) (*telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if assetID == "" {
		return nil, errors.New("reading repo: asset id required")
	}
	query := fmt.Sprintf(`
SELECT asset_id, timestamp, payload
FROM %s
WHERE asset_id = $1
ORDER BY timestamp DESC
LIMIT 2`, r.table)
	rows, err := r.db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*telemetry.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(readings) < 2 {
		return nil, nil
	}
	return readings[1], nil
}

// Window returns readings within the trailing window, newest first.
func (r *ReadingRepository) Window(ctx context.Context, assetID string, minutes int) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if assetID == "" {
		return nil, errors.New("reading repo: asset id required")
	}
	if minutes <= 0 {
		return nil, errors.New("reading repo: window minutes must be positive")
	}
	cutoff := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	query := fmt.Sprintf(`
SELECT asset_id, timestamp, payload
FROM %s
WHERE asset_id = $1 AND timestamp >= $2
ORDER BY timestamp DESC`, r.table)
	rows, err := r.db.QueryContext(ctx, query, assetID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []telemetry.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

type readingScanner interface {
	Scan(dest ...any) error
}

func scanReading(scanner readingScanner) (*telemetry.Reading, error) {
	var reading telemetry.Reading
	var payload []byte
	if err := scanner.Scan(&reading.AssetID, &reading.Timestamp, &payload); err != nil {
		return nil, err
	}
	reading.Timestamp = reading.Timestamp.UTC()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &reading.Fields); err != nil {
			return nil, err
		}
	}
	return &reading, nil
}
