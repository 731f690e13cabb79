package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oee-backend/internal/apperr"
	oee "oee-backend/internal/oee/domain"
)

func setupMockRecordRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *RecordRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewRecordRepository(db)
}

func validRecord() oee.Record {
	return oee.Record{
		Time:       time.Date(2026, time.March, 4, 8, 30, 0, 0, time.UTC),
		ObjectType: 0,
		ObjectID:   7,
		Sample:     oee.Sample{GoodCount: 80, TotalCount: 100, RunTime: 420, TotalTime: 480, TargetCount: 100},
		Metrics:    oee.Metrics{Availability: 0.875, Performance: 1.0, Quality: 0.8, Oee: 0.7},
	}
}

func TestRecordRepository_Insert(t *testing.T) {
	db, mock, repo := setupMockRecordRepo(t)
	defer db.Close()

	record := validRecord()
	mock.ExpectExec(`INSERT INTO oee_data`).
		WithArgs(
			record.Time,
			80.0, 100.0, 420.0, 480.0, 100.0,
			0.875, 1.0, 0.8, 0.7,
			0, int64(7),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_InsertRejectsIncompleteRecord(t *testing.T) {
	db, _, repo := setupMockRecordRepo(t)
	defer db.Close()

	record := validRecord()
	record.ObjectID = 0
	err := repo.Insert(context.Background(), record)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRecordRepository_GetLatestNoData(t *testing.T) {
	db, mock, repo := setupMockRecordRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM oee_data`).
		WithArgs(0, int64(7)).
		WillReturnError(sql.ErrNoRows)

	record, err := repo.GetLatest(context.Background(), 0, 7)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRecordRepository_GetLatest(t *testing.T) {
	db, mock, repo := setupMockRecordRepo(t)
	defer db.Close()

	ts := time.Date(2026, time.March, 4, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"time", "good_count", "total_count", "run_time", "total_time", "target_count",
		"availability", "performance", "quality", "oee", "object_type", "object_id",
	}).AddRow(ts, 80.0, 100.0, 420.0, 480.0, 100.0, 0.875, 1.0, 0.8, 0.7, 0, int64(7))

	mock.ExpectQuery(`SELECT (.+) FROM oee_data`).
		WithArgs(0, int64(7)).
		WillReturnRows(rows)

	record, err := repo.GetLatest(context.Background(), 0, 7)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, ts, record.Time)
	assert.InDelta(t, 0.7, record.Metrics.Oee, 1e-9)
	assert.Equal(t, int64(7), record.ObjectID)
}

func TestRecordRepository_GetRangeBuckets(t *testing.T) {
	db, mock, repo := setupMockRecordRepo(t)
	defer db.Close()

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 3, 23, 59, 59, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"bucket", "avg_availability", "avg_performance", "avg_quality", "avg_oee",
		"sum_good_count", "sum_total_count", "sum_run_time", "sum_total_time", "sum_target_count", "count",
	}).
		AddRow(start, 0.9, 0.95, 0.8, 0.684, 160.0, 200.0, 840.0, 960.0, 200.0, int64(2)).
		AddRow(start.AddDate(0, 0, 1), 0.85, 1.0, 0.9, 0.765, 90.0, 100.0, 408.0, 480.0, 100.0, int64(1))

	mock.ExpectQuery(`SELECT (.+) FROM oee_data`).
		WithArgs(1, int64(3), start, end).
		WillReturnRows(rows)

	buckets, err := repo.GetRange(context.Background(), 1, 3, start, end)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.True(t, buckets[0].Day.Before(buckets[1].Day))
	assert.InDelta(t, 160.0, buckets[0].SumGoodCount, 1e-9)
	assert.Equal(t, int64(2), buckets[0].SampleCount)
}

func TestRecordRepository_GetRangeValidation(t *testing.T) {
	db, _, repo := setupMockRecordRepo(t)
	defer db.Close()

	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	_, err := repo.GetRange(context.Background(), 1, 3, time.Time{}, start)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = repo.GetRange(context.Background(), 1, 3, start, start.AddDate(0, 0, -1))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
