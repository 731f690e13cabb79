// Package oee holds the OEE calculation core and the record model for
// the time-series store.
package oee

import "oee-backend/internal/apperr"

// Sample holds the five raw production counters for one calculation.
// Samples are transient; they are never persisted on their own.
type Sample struct {
	GoodCount   float64 `json:"good_count"`
	TotalCount  float64 `json:"total_count"`
	RunTime     float64 `json:"run_time"`
	TotalTime   float64 `json:"total_time"`
	TargetCount float64 `json:"target_count"`
}

// Metrics is the derived OEE outcome of a sample.
type Metrics struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	Oee          float64 `json:"oee"`
}

// Validate checks counter invariants: all counters non-negative and all
// divisors non-zero.
func (s Sample) Validate() error {
	switch {
	case s.GoodCount < 0, s.TotalCount < 0, s.RunTime < 0, s.TotalTime < 0, s.TargetCount < 0:
		return apperr.Validation("counters must be non-negative")
	case s.TotalCount == 0:
		return apperr.Validation("total_count cannot be zero")
	case s.TotalTime == 0:
		return apperr.Validation("total_time cannot be zero")
	case s.TargetCount == 0:
		return apperr.Validation("target_count cannot be zero")
	}
	return nil
}

// Calculate derives availability, performance, quality and composite OEE
// from a sample. It is pure: identical samples always produce identical
// metrics, and no NaN or Inf can escape because zero divisors are
// rejected up front.
func Calculate(s Sample) (Metrics, error) {
	if err := s.Validate(); err != nil {
		return Metrics{}, err
	}
	m := Metrics{
		Quality:      s.GoodCount / s.TotalCount,
		Availability: s.RunTime / s.TotalTime,
		Performance:  s.TotalCount / s.TargetCount,
	}
	m.Oee = m.Quality * m.Availability * m.Performance
	return m, nil
}
