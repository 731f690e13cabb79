package postgres

import (
	"context"
	"database/sql"

	"oee-backend/internal/apperr"
	assets "oee-backend/internal/assets/domain"
)

// FlatViewRepository reads the denormalized vw_obj_all view that joins
// the five hierarchy tables into one row per asset.
type FlatViewRepository struct {
	db   *sql.DB
	view string
}

const defaultFlatView = "vw_obj_all"

// NewFlatViewRepository constructs a reader over the default view.
func NewFlatViewRepository(db *sql.DB, opts ...FlatViewOption) *FlatViewRepository {
	repo := &FlatViewRepository{db: db, view: defaultFlatView}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// FlatViewOption configures the reader.
type FlatViewOption func(*FlatViewRepository)

// WithView overrides the view name.
func WithView(view string) FlatViewOption {
	return func(repo *FlatViewRepository) {
		if view != "" {
			repo.view = view
		}
	}
}

// ListFlat returns every row of the flattened view.
func (r *FlatViewRepository) ListFlat(ctx context.Context) ([]assets.FlatRow, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("flat view repo: nil db", nil)
	}

	query := "SELECT enterprise, site, area, line, cell, object_id FROM " + r.view

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Store("flat view repo: query", err)
	}
	defer rows.Close()

	var result []assets.FlatRow
	for rows.Next() {
		var (
			row  assets.FlatRow
			site sql.NullString
			area sql.NullString
			line sql.NullString
			cell sql.NullString
		)
		if err := rows.Scan(&row.Enterprise, &site, &area, &line, &cell, &row.ObjectID); err != nil {
			return nil, apperr.Store("flat view repo: scan", err)
		}
		row.Site = nullableString(site)
		row.Area = nullableString(area)
		row.Line = nullableString(line)
		row.Cell = nullableString(cell)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("flat view repo: rows", err)
	}
	return result, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
