package oeehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"oee-backend/internal/apperr"
	"oee-backend/internal/observability/metrics"
	oee "oee-backend/internal/oee/domain"
)

type fakeRecords struct {
	inserted  []oee.Record
	insertErr error
	latest    *oee.Record
	latestErr error
	buckets   []oee.Bucket
	rangeErr  error
}

func (f *fakeRecords) Insert(_ context.Context, record oee.Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, record)
	return nil
}

func (f *fakeRecords) GetLatest(_ context.Context, _ int, _ int64) (*oee.Record, error) {
	return f.latest, f.latestErr
}

func (f *fakeRecords) GetRange(_ context.Context, _ int, _ int64, _, _ time.Time) ([]oee.Bucket, error) {
	return f.buckets, f.rangeErr
}

func newServer(records *fakeRecords) http.Handler {
	h := NewHandler(records, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestCalculateReferenceSample(t *testing.T) {
	h := newServer(&fakeRecords{})
	rec := do(t, h, http.MethodPost, "/oee/calculate",
		`{"good_count":70,"total_count":80,"run_time":8,"total_time":8,"target_count":100}`)

	require.Equal(t, http.StatusOK, rec.Code)

	// the calculator answers with the bare metrics object, unwrapped
	var got oee.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 0.875, got.Quality, 1e-9)
	assert.InDelta(t, 1.0, got.Availability, 1e-9)
	assert.InDelta(t, 0.8, got.Performance, 1e-9)
	assert.InDelta(t, 0.7, got.Oee, 1e-9)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	assert.NotContains(t, keys, "data")
	assert.NotContains(t, keys, "message")
}

func TestCalculateValidation(t *testing.T) {
	h := newServer(&fakeRecords{})

	t.Run("missing counter", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/oee/calculate",
			`{"good_count":70,"total_count":80,"run_time":8,"total_time":8}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero divisor", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/oee/calculate",
			`{"good_count":70,"total_count":0,"run_time":8,"total_time":8,"target_count":100}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "total_count")
	})

	t.Run("explicit zero is not missing", func(t *testing.T) {
		// good_count: 0 passes field validation, then computes to zero quality
		rec := do(t, h, http.MethodPost, "/oee/calculate",
			`{"good_count":0,"total_count":80,"run_time":8,"total_time":8,"target_count":100}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCalculateStorePersists(t *testing.T) {
	records := &fakeRecords{}
	h := newServer(records)
	rec := do(t, h, http.MethodPost, "/oee/calculate/store",
		`{"good_count":70,"total_count":80,"run_time":8,"total_time":8,"target_count":100,
		  "object_type":2,"object_id":5,"time":"2026-03-04 07:30:00"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, records.inserted, 1)
	got := records.inserted[0]
	assert.Equal(t, 2, got.ObjectType)
	assert.Equal(t, int64(5), got.ObjectID)
	assert.True(t, got.Time.Equal(time.Date(2026, time.March, 4, 7, 30, 0, 0, time.UTC)))
	assert.InDelta(t, 0.7, got.Metrics.Oee, 1e-9)

	// same response shape as the plain calculate route
	var body oee.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 0.7, body.Oee, 1e-9)
}

func TestCalculateStoreDefaultsTimeToNow(t *testing.T) {
	records := &fakeRecords{}
	h := newServer(records)
	rec := do(t, h, http.MethodPost, "/oee/calculate/store",
		`{"good_count":70,"total_count":80,"run_time":8,"total_time":8,"target_count":100,
		  "object_type":2,"object_id":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, records.inserted, 1)
	assert.True(t, records.inserted[0].Time.Equal(time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC)))
}

func TestCalculateStoreRejectsBadTimestamp(t *testing.T) {
	metrics.Init(nil, nil)
	records := &fakeRecords{}
	h := newServer(records)
	before := calculationCount(t, metrics.ResultSuccess)

	rec := do(t, h, http.MethodPost, "/oee/calculate/store",
		`{"good_count":70,"total_count":80,"run_time":8,"total_time":8,"target_count":100,
		  "object_type":2,"object_id":5,"time":"yesterday-ish"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, records.inserted)
	// a request rejected on the timestamp never counts as a successful calculation
	assert.Equal(t, before, calculationCount(t, metrics.ResultSuccess))
}

// calculationCount reads oee_calculations_total for one result label
// from the default registry.
func calculationCount(t *testing.T, result string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "oee_calculations_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCalculateStoreNoPersistOnCalcFailure(t *testing.T) {
	records := &fakeRecords{}
	h := newServer(records)
	rec := do(t, h, http.MethodPost, "/oee/calculate/store",
		`{"good_count":70,"total_count":80,"run_time":8,"total_time":0,"target_count":100,
		  "object_type":2,"object_id":5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, records.inserted)
}

func TestCalculateStoreSurfacesStoreFailure(t *testing.T) {
	records := &fakeRecords{insertErr: apperr.Store("oee repo: insert", errors.New("down"))}
	h := newServer(records)
	rec := do(t, h, http.MethodPost, "/oee/calculate/store",
		`{"good_count":70,"total_count":80,"run_time":8,"total_time":8,"target_count":100,
		  "object_type":2,"object_id":5}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestLatest(t *testing.T) {
	t.Run("no data is 404", func(t *testing.T) {
		rec := do(t, newServer(&fakeRecords{}), http.MethodGet, "/oee/2/5", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns record", func(t *testing.T) {
		records := &fakeRecords{latest: &oee.Record{
			Time:       time.Date(2026, time.March, 4, 7, 0, 0, 0, time.UTC),
			ObjectType: 2,
			ObjectID:   5,
			Metrics:    oee.Metrics{Oee: 0.7},
		}}
		rec := do(t, newServer(records), http.MethodGet, "/oee/2/5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"object_id":5`)
	})

	t.Run("bad object type", func(t *testing.T) {
		rec := do(t, newServer(&fakeRecords{}), http.MethodGet, "/oee/9/5", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHistory(t *testing.T) {
	buckets := []oee.Bucket{
		{Day: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), AvgOee: 0.7, SampleCount: 4},
		{Day: time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC), AvgOee: 0.8, SampleCount: 2},
	}

	t.Run("requires both dates", func(t *testing.T) {
		rec := do(t, newServer(&fakeRecords{buckets: buckets}), http.MethodGet,
			"/oee/history/2/5?start_date=2026-03-01+00:00:00", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "end_date")
	})

	t.Run("returns buckets", func(t *testing.T) {
		rec := do(t, newServer(&fakeRecords{buckets: buckets}), http.MethodGet,
			"/oee/history/2/5?start_date=2026-03-01+00:00:00&end_date=2026-03-05+00:00:00", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data []oee.Bucket `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.InDelta(t, 0.7, resp.Data[0].AvgOee, 1e-9)
	})

	t.Run("empty range is an empty array", func(t *testing.T) {
		rec := do(t, newServer(&fakeRecords{}), http.MethodGet,
			"/oee/history/2/5?start_date=2026-03-01+00:00:00&end_date=2026-03-05+00:00:00", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"data":[]`)
	})
}

func TestExportEndpoints(t *testing.T) {
	buckets := []oee.Bucket{
		{Day: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), AvgOee: 0.7, SumGoodCount: 280, SampleCount: 4},
	}
	target := "/oee/history/2/5/export.%s?start_date=2026-03-01+00:00:00&end_date=2026-03-05+00:00:00"

	t.Run("xlsx", func(t *testing.T) {
		rec := do(t, newServer(&fakeRecords{buckets: buckets}), http.MethodGet,
			strings.Replace(target, "%s", "xlsx", 1), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "oee_history_2_5.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		day, err := f.GetCellValue("history", "A6")
		require.NoError(t, err)
		assert.Equal(t, "2026-03-03", day)
	})

	t.Run("pdf", func(t *testing.T) {
		rec := do(t, newServer(&fakeRecords{buckets: buckets}), http.MethodGet,
			strings.Replace(target, "%s", "pdf", 1), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	})
}
