// Package oeehttp exposes the OEE calculator and the record series
// over HTTP.
package oeehttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apihttp "oee-backend/internal/api/http"
	"oee-backend/internal/apperr"
	oee "oee-backend/internal/oee/domain"
	"oee-backend/internal/observability/metrics"
)

// Handler serves the /oee routes.
type Handler struct {
	records oee.RecordRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(records oee.RecordRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{records: records, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Routes mounts the OEE endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/oee/calculate", h.Calculate)
	r.Post("/oee/calculate/store", h.CalculateStore)
	r.Get("/oee/history/{objectType}/{objectID}", h.History)
	r.Get("/oee/history/{objectType}/{objectID}/export.xlsx", h.ExportXLSX)
	r.Get("/oee/history/{objectType}/{objectID}/export.pdf", h.ExportPDF)
	r.Get("/oee/{objectType}/{objectID}", h.Latest)
}

// calculateRequest carries the five raw counters. Pointers so a missing
// field is distinguishable from an explicit zero.
type calculateRequest struct {
	GoodCount   *float64 `json:"good_count" validate:"required"`
	TotalCount  *float64 `json:"total_count" validate:"required"`
	RunTime     *float64 `json:"run_time" validate:"required"`
	TotalTime   *float64 `json:"total_time" validate:"required"`
	TargetCount *float64 `json:"target_count" validate:"required"`
}

func (req calculateRequest) sample() oee.Sample {
	return oee.Sample{
		GoodCount:   *req.GoodCount,
		TotalCount:  *req.TotalCount,
		RunTime:     *req.RunTime,
		TotalTime:   *req.TotalTime,
		TargetCount: *req.TargetCount,
	}
}

type calculateStoreRequest struct {
	calculateRequest
	ObjectType *int   `json:"object_type" validate:"required,min=0,max=4"`
	ObjectID   *int64 `json:"object_id" validate:"required,min=1"`
	Time       string `json:"time"`
}

// Calculate handles POST /oee/calculate.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req calculateRequest
	if err := apihttp.DecodeValid(r, &req); err != nil {
		metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, err)
		return
	}

	result, err := oee.Calculate(req.sample())
	if err != nil {
		metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, err)
		return
	}

	metrics.ObserveCalculation(metrics.ResultSuccess, time.Since(start))
	apihttp.WriteBare(w, http.StatusOK, result)
}

// CalculateStore handles POST /oee/calculate/store: compute first,
// persist only when the computation succeeded.
func (h *Handler) CalculateStore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req calculateStoreRequest
	if err := apihttp.DecodeValid(r, &req); err != nil {
		metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, err)
		return
	}

	sample := req.sample()
	result, err := oee.Calculate(sample)
	if err != nil {
		metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, err)
		return
	}
	ts := h.now()
	if req.Time != "" {
		ts, err = apihttp.ParseTimestamp(req.Time)
		if err != nil {
			metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
			apihttp.WriteError(w, h.logger, err)
			return
		}
	}
	metrics.ObserveCalculation(metrics.ResultSuccess, time.Since(start))

	record := oee.Record{
		Time:       ts,
		ObjectType: *req.ObjectType,
		ObjectID:   *req.ObjectID,
		Sample:     sample,
		Metrics:    result,
	}
	if err := h.records.Insert(r.Context(), record); err != nil {
		metrics.IncRecordStored(metrics.ResultError)
		apihttp.WriteError(w, h.logger, err)
		return
	}
	metrics.IncRecordStored(metrics.ResultSuccess)

	apihttp.WriteBare(w, http.StatusOK, result)
}

// Latest handles GET /oee/{objectType}/{objectID}.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	objectType, objectID, err := assetParams(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	record, err := h.records.GetLatest(r.Context(), objectType, objectID)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}
	if record == nil {
		apihttp.WriteError(w, h.logger, apperr.NotFound("no oee data for asset"))
		return
	}

	apihttp.WriteData(w, http.StatusOK, record)
}

// History handles GET /oee/history/{objectType}/{objectID}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	_, _, buckets, err := h.history(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}
	if buckets == nil {
		buckets = []oee.Bucket{}
	}
	apihttp.WriteData(w, http.StatusOK, buckets)
}

// history parses the asset params and date range, then runs the bucket
// query shared by the JSON and export endpoints.
func (h *Handler) history(r *http.Request) (objectType int, objectID int64, buckets []oee.Bucket, err error) {
	objectType, objectID, err = assetParams(r)
	if err != nil {
		return 0, 0, nil, err
	}

	start, err := rangeParam(r, "start_date")
	if err != nil {
		return 0, 0, nil, err
	}
	end, err := rangeParam(r, "end_date")
	if err != nil {
		return 0, 0, nil, err
	}

	buckets, err = h.records.GetRange(r.Context(), objectType, objectID, start, end)
	if err != nil {
		return 0, 0, nil, err
	}
	return objectType, objectID, buckets, nil
}

func assetParams(r *http.Request) (int, int64, error) {
	objectType, err := strconv.Atoi(chi.URLParam(r, "objectType"))
	if err != nil || objectType < 0 || objectType > 4 {
		return 0, 0, apperr.Validationf("invalid object_type %q", chi.URLParam(r, "objectType"))
	}
	objectID, err := strconv.ParseInt(chi.URLParam(r, "objectID"), 10, 64)
	if err != nil || objectID <= 0 {
		return 0, 0, apperr.Validationf("invalid object_id %q", chi.URLParam(r, "objectID"))
	}
	return objectType, objectID, nil
}

func rangeParam(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, apperr.Validationf("%s is required", key)
	}
	parsed, err := apihttp.ParseTimestamp(value)
	if err != nil {
		return time.Time{}, apperr.Validationf("invalid %s: %v", key, err)
	}
	return parsed, nil
}
