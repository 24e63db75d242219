package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	masterdata "gridwatch/internal/masterdata/domain"
)

const (
	defaultAssetsTable = "assets"
	defaultSitesTable  = "sites"
)

// AssetRepository is a Postgres implementation for assets.
type AssetRepository struct {
	db         DBTX
	table      string
	sitesTable string
}

// NewAssetRepository constructs a repository.
func NewAssetRepository(db DBTX, opts ...AssetOption) *AssetRepository {
	repo := &AssetRepository{db: db, table: defaultAssetsTable, sitesTable: defaultSitesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// AssetOption configures the repository.
type AssetOption func(*AssetRepository)

// WithAssetsTable overrides the default assets table name.
func WithAssetsTable(table string) AssetOption {
	return func(repo *AssetRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithSitesTable overrides the default sites table name.
func WithSitesTable(table string) AssetOption {
	return func(repo *AssetRepository) {
		if table != "" {
			repo.sitesTable = table
		}
	}
}

// Get loads an asset by id with its site labels.
func (r *AssetRepository) Get(ctx context.Context, id string) (*masterdata.Asset, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("asset repo: nil db")
	}
	if id == "" {
		return nil, errors.New("asset repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT a.id, a.name, a.asset_type, a.site_id, s.name, s.region, a.monitored, a.created_at, a.updated_at
FROM %s a
JOIN %s s ON s.id = a.site_id
WHERE a.id = $1
LIMIT 1`, r.table, r.sitesTable)

	var asset masterdata.Asset
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.Name,
		&asset.Type,
		&asset.SiteID,
		&asset.SiteName,
		&asset.Region,
		&asset.Monitored,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	asset.CreatedAt = asset.CreatedAt.UTC()
	asset.UpdatedAt = asset.UpdatedAt.UTC()
	return &asset, nil
}

// ListMonitored loads every asset flagged for scheduled evaluation.
func (r *AssetRepository) ListMonitored(ctx context.Context) ([]masterdata.Asset, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("asset repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT a.id, a.name, a.asset_type, a.site_id, s.name, s.region, a.monitored, a.created_at, a.updated_at
FROM %s a
JOIN %s s ON s.id = a.site_id
WHERE a.monitored = TRUE
ORDER BY a.id ASC`, r.table, r.sitesTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Asset
	for rows.Next() {
		var asset masterdata.Asset
		if err := rows.Scan(
			&asset.ID,
			&asset.Name,
			&asset.Type,
			&asset.SiteID,
			&asset.SiteName,
			&asset.Region,
			&asset.Monitored,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		); err != nil {
			return nil, err
		}
		asset.CreatedAt = asset.CreatedAt.UTC()
		asset.UpdatedAt = asset.UpdatedAt.UTC()
		result = append(result, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save upserts an asset.
func (r *AssetRepository) Save(ctx context.Context, asset *masterdata.Asset) error {
	if r == nil || r.db == nil {
		return errors.New("asset repo: nil db")
	}
	if asset == nil {
		return errors.New("asset repo: nil asset")
	}
	if err := asset.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	name,
	asset_type,
	site_id,
	monitored
) VALUES (
	$1, $2, $3, $4, $5
)
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	asset_type = EXCLUDED.asset_type,
	site_id = EXCLUDED.site_id,
	monitored = EXCLUDED.monitored,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		asset.ID,
		asset.Name,
		asset.Type,
		asset.SiteID,
		asset.Monitored,
	)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now
	return nil
}
