package oee

import (
	"context"
	"math"
	"time"

	"oee-backend/internal/apperr"
)

// Record is a persisted, timestamped OEE outcome tagged with the asset
// it measures. Records reference assets by (object type, object id)
// pair, not a foreign key; the time-series store and the asset store
// are logically separate.
type Record struct {
	Time       time.Time `json:"time"`
	ObjectType int       `json:"object_type"`
	ObjectID   int64     `json:"object_id"`
	Sample     Sample    `json:"sample"`
	Metrics    Metrics   `json:"metrics"`
}

// metricsTolerance bounds the float drift accepted between stored
// metrics and their recomputation from the sample.
const metricsTolerance = 1e-9

// Validate checks that a record carries the full field set required by
// the append-only store: timestamp, asset reference, valid counters,
// and metrics that actually derive from those counters.
func (r Record) Validate() error {
	if r.Time.IsZero() {
		return apperr.Validation("time is required")
	}
	if r.ObjectType < 0 || r.ObjectType > 4 {
		return apperr.Validationf("invalid object_type %d", r.ObjectType)
	}
	if r.ObjectID <= 0 {
		return apperr.Validation("object_id is required")
	}
	derived, err := Calculate(r.Sample)
	if err != nil {
		return err
	}
	if !metricsClose(r.Metrics, derived) {
		return apperr.Validation("metrics do not match their sample")
	}
	return nil
}

func metricsClose(a, b Metrics) bool {
	return math.Abs(a.Availability-b.Availability) <= metricsTolerance &&
		math.Abs(a.Performance-b.Performance) <= metricsTolerance &&
		math.Abs(a.Quality-b.Quality) <= metricsTolerance &&
		math.Abs(a.Oee-b.Oee) <= metricsTolerance
}

// Bucket is a one-calendar-day aggregate over the record series:
// averages of the ratio metrics, sums of the raw counters.
type Bucket struct {
	Day time.Time `json:"day"`

	AvgAvailability float64 `json:"avg_availability"`
	AvgPerformance  float64 `json:"avg_performance"`
	AvgQuality      float64 `json:"avg_quality"`
	AvgOee          float64 `json:"avg_oee"`

	SumGoodCount   float64 `json:"sum_good_count"`
	SumTotalCount  float64 `json:"sum_total_count"`
	SumRunTime     float64 `json:"sum_run_time"`
	SumTotalTime   float64 `json:"sum_total_time"`
	SumTargetCount float64 `json:"sum_target_count"`

	SampleCount int64 `json:"sample_count"`
}

// RecordRepository manages the append-only OEE record series.
type RecordRepository interface {
	Insert(ctx context.Context, record Record) error
	// GetLatest returns the most recent record for the asset, or
	// (nil, nil) when the series holds no data for it.
	GetLatest(ctx context.Context, objectType int, objectID int64) (*Record, error)
	// GetRange returns one bucket per calendar day touched by
	// [start, end], ordered ascending by day.
	GetRange(ctx context.Context, objectType int, objectID int64, start, end time.Time) ([]Bucket, error)
}

// LatestReader is the read-side slice of the repository used by the
// asset tree builder.
type LatestReader interface {
	GetLatest(ctx context.Context, objectType int, objectID int64) (*Record, error)
}
