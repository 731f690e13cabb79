// Package postgres implements the OEE time-series store over
// database/sql. The backing table is append-only and becomes a
// TimescaleDB hypertable when the extension is available.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"oee-backend/internal/apperr"
	oee "oee-backend/internal/oee/domain"
)

const defaultRecordTable = "oee_data"

// RecordRepository is a Postgres implementation of oee.RecordRepository.
type RecordRepository struct {
	db    *sql.DB
	table string
}

// NewRecordRepository constructs a repository with the default table.
func NewRecordRepository(db *sql.DB, opts ...RecordOption) *RecordRepository {
	repo := &RecordRepository{db: db, table: defaultRecordTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RecordOption configures the repository.
type RecordOption func(*RecordRepository)

// WithRecordTable overrides the default table name.
func WithRecordTable(table string) RecordOption {
	return func(repo *RecordRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert appends one record to the series.
func (r *RecordRepository) Insert(ctx context.Context, record oee.Record) error {
	if r == nil || r.db == nil {
		return apperr.Internal("oee repo: nil db", nil)
	}
	if err := record.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	time,
	good_count,
	total_count,
	run_time,
	total_time,
	target_count,
	availability,
	performance,
	quality,
	oee,
	object_type,
	object_id
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		record.Time.UTC(),
		record.Sample.GoodCount,
		record.Sample.TotalCount,
		record.Sample.RunTime,
		record.Sample.TotalTime,
		record.Sample.TargetCount,
		record.Metrics.Availability,
		record.Metrics.Performance,
		record.Metrics.Quality,
		record.Metrics.Oee,
		record.ObjectType,
		record.ObjectID,
	)
	if err != nil {
		return apperr.Store("oee repo: insert", err)
	}
	return nil
}

// GetLatest returns the most recent record for the asset, or (nil, nil)
// when the series holds no data for it.
func (r *RecordRepository) GetLatest(ctx context.Context, objectType int, objectID int64) (*oee.Record, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("oee repo: nil db", nil)
	}

	query := fmt.Sprintf(`
SELECT
	time,
	good_count,
	total_count,
	run_time,
	total_time,
	target_count,
	availability,
	performance,
	quality,
	oee,
	object_type,
	object_id
FROM %s
WHERE object_type = $1 AND object_id = $2
ORDER BY time DESC
LIMIT 1`, r.table)

	var record oee.Record
	err := r.db.QueryRowContext(ctx, query, objectType, objectID).Scan(
		&record.Time,
		&record.Sample.GoodCount,
		&record.Sample.TotalCount,
		&record.Sample.RunTime,
		&record.Sample.TotalTime,
		&record.Sample.TargetCount,
		&record.Metrics.Availability,
		&record.Metrics.Performance,
		&record.Metrics.Quality,
		&record.Metrics.Oee,
		&record.ObjectType,
		&record.ObjectID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("oee repo: get latest", err)
	}
	record.Time = record.Time.UTC()
	return &record, nil
}

// GetRange returns one aggregate bucket per calendar day (UTC) touched
// by [start, end], ordered ascending by bucket start: averages of the
// ratio metrics, sums of the raw counters.
func (r *RecordRepository) GetRange(ctx context.Context, objectType int, objectID int64, start, end time.Time) ([]oee.Bucket, error) {
	if r == nil || r.db == nil {
		return nil, apperr.Internal("oee repo: nil db", nil)
	}
	if start.IsZero() || end.IsZero() {
		return nil, apperr.Validation("start and end are required")
	}
	if end.Before(start) {
		return nil, apperr.Validation("end must not be before start")
	}

	query := fmt.Sprintf(`
SELECT
	date_trunc('day', time AT TIME ZONE 'UTC') AS bucket,
	AVG(availability),
	AVG(performance),
	AVG(quality),
	AVG(oee),
	SUM(good_count),
	SUM(total_count),
	SUM(run_time),
	SUM(total_time),
	SUM(target_count),
	COUNT(*)
FROM %s
WHERE object_type = $1 AND object_id = $2 AND time >= $3 AND time <= $4
GROUP BY bucket
ORDER BY bucket ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, objectType, objectID, start.UTC(), end.UTC())
	if err != nil {
		return nil, apperr.Store("oee repo: get range", err)
	}
	defer rows.Close()

	var result []oee.Bucket
	for rows.Next() {
		var bucket oee.Bucket
		if err := rows.Scan(
			&bucket.Day,
			&bucket.AvgAvailability,
			&bucket.AvgPerformance,
			&bucket.AvgQuality,
			&bucket.AvgOee,
			&bucket.SumGoodCount,
			&bucket.SumTotalCount,
			&bucket.SumRunTime,
			&bucket.SumTotalTime,
			&bucket.SumTargetCount,
			&bucket.SampleCount,
		); err != nil {
			return nil, apperr.Store("oee repo: scan bucket", err)
		}
		bucket.Day = bucket.Day.UTC()
		result = append(result, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("oee repo: rows", err)
	}
	return result, nil
}
