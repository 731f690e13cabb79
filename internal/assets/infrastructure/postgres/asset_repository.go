// Package postgres implements the asset stores over database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"oee-backend/internal/apperr"
	assets "oee-backend/internal/assets/domain"
)

// AssetRepository is a Postgres implementation of assets.Repository.
// One repository serves all five kinds; the kind selects the table.
// The table name is a compile-time constant per kind, so interpolating
// it into the query text is safe; all values go through placeholders.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository constructs a repository.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = "id, name, description, parent_id, object_type"

// Create inserts a row and re-fetches it by the returned id.
func (r *AssetRepository) Create(ctx context.Context, kind assets.Kind, name, description string, parentID *int64) (*assets.Asset, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("asset repo: nil db", nil)
	}
	if !kind.Valid() {
		return nil, apperr.Validationf("invalid asset kind %d", int(kind))
	}
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	if parentID != nil {
		parentKind, ok := kind.Parent()
		if !ok {
			return nil, apperr.Validationf("%s assets cannot have a parent", kind)
		}
		if _, err := r.Get(ctx, parentKind, *parentID); err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.Validationf("parent %s %d not found", parentKind, *parentID)
			}
			return nil, err
		}
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, description, parent_id, object_type)
VALUES ($1, $2, $3, $4)
RETURNING id`, kind.Table())

	var id int64
	err := r.db.QueryRowContext(ctx, query, name, description, nullableID(parentID), int(kind)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Internal("asset repo: insert returned no id", nil)
	}
	if err != nil {
		return nil, apperr.Store("asset repo: create", err)
	}
	return r.Get(ctx, kind, id)
}

// Get returns the asset when present and not deprecated.
func (r *AssetRepository) Get(ctx context.Context, kind assets.Kind, id int64) (*assets.Asset, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("asset repo: nil db", nil)
	}
	if !kind.Valid() {
		return nil, apperr.Validationf("invalid asset kind %d", int(kind))
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1 AND NOT deprecated`, assetColumns, kind.Table())

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("asset not found")
	}
	if err != nil {
		return nil, apperr.Store("asset repo: get", err)
	}
	return asset, nil
}

// GetAll returns all non-deprecated assets of the kind.
func (r *AssetRepository) GetAll(ctx context.Context, kind assets.Kind) ([]assets.Asset, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("asset repo: nil db", nil)
	}
	if !kind.Valid() {
		return nil, apperr.Validationf("invalid asset kind %d", int(kind))
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE NOT deprecated`, assetColumns, kind.Table())

	return r.queryAssets(ctx, query)
}

// Update mutates name and description only, then re-fetches the asset.
// Tree shape is immutable: parent_id and object_type are never touched.
func (r *AssetRepository) Update(ctx context.Context, kind assets.Kind, id int64, name, description string) (*assets.Asset, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("asset repo: nil db", nil)
	}
	if !kind.Valid() {
		return nil, apperr.Validationf("invalid asset kind %d", int(kind))
	}
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET name = $1, description = $2
WHERE id = $3 AND NOT deprecated`, kind.Table())

	result, err := r.db.ExecContext(ctx, query, name, description, id)
	if err != nil {
		return nil, apperr.Store("asset repo: update", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperr.Store("asset repo: update", err)
	}
	if affected == 0 {
		return nil, apperr.NotFound("asset not found")
	}
	return r.Get(ctx, kind, id)
}

// Delete soft-deletes the asset and returns its last live state.
// Deleting an absent or already deprecated asset reports not-found.
func (r *AssetRepository) Delete(ctx context.Context, kind assets.Kind, id int64) (*assets.Asset, error) {
	asset, err := r.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET deprecated = true
WHERE id = $1 AND NOT deprecated`, kind.Table())

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, apperr.Store("asset repo: delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperr.Store("asset repo: delete", err)
	}
	if affected == 0 {
		// lost a race with a concurrent delete
		return nil, apperr.NotFound("asset not found")
	}
	return asset, nil
}

// GetChildren returns the non-deprecated children one level down.
func (r *AssetRepository) GetChildren(ctx context.Context, kind assets.Kind, id int64) ([]assets.Asset, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("asset repo: nil db", nil)
	}
	childKind, ok := kind.Child()
	if !ok {
		return nil, apperr.Validationf("%s assets have no children", kind)
	}
	if _, err := r.Get(ctx, kind, id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE parent_id = $1 AND NOT deprecated`, assetColumns, childKind.Table())

	return r.queryAssets(ctx, query, id)
}

// GetParent returns the asset's parent one level up.
func (r *AssetRepository) GetParent(ctx context.Context, kind assets.Kind, id int64) (*assets.Asset, error) {
	parentKind, ok := kind.Parent()
	if !ok {
		return nil, apperr.Validationf("%s assets have no parent", kind)
	}

	asset, err := r.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if asset.ParentID == nil {
		return nil, apperr.NotFound("asset has no parent")
	}
	return r.Get(ctx, parentKind, *asset.ParentID)
}

func (r *AssetRepository) queryAssets(ctx context.Context, query string, args ...any) ([]assets.Asset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("asset repo: query", err)
	}
	defer rows.Close()

	var result []assets.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, apperr.Store("asset repo: scan", err)
		}
		result = append(result, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("asset repo: rows", err)
	}
	return result, nil
}

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*assets.Asset, error) {
	var (
		asset    assets.Asset
		parentID sql.NullInt64
	)
	if err := scanner.Scan(&asset.ID, &asset.Name, &asset.Description, &parentID, &asset.ObjectType); err != nil {
		return nil, err
	}
	if parentID.Valid {
		asset.ParentID = &parentID.Int64
	}
	return &asset, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
