package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "oee_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	calculationsTotal   *prometheus.CounterVec
	calculationsLatency *prometheus.HistogramVec

	recordsStored *prometheus.CounterVec

	historyExportTotal   *prometheus.CounterVec
	historyExportLatency *prometheus.HistogramVec

	assetOpsTotal *prometheus.CounterVec

	treeBuildTotal   *prometheus.CounterVec
	treeBuildLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		calculationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calculations_total",
				Help: "Total OEE calculations by result",
			},
			[]string{"result"},
		)
		calculationsLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "calculation_latency_seconds",
				Help:    "OEE calculation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		recordsStored = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_stored_total",
				Help: "Total OEE records written to the series by result",
			},
			[]string{"result"},
		)

		historyExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_export_total",
				Help: "Total history exports by format and result",
			},
			[]string{"format", "result"},
		)
		historyExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "history_export_latency_seconds",
				Help:    "History export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		assetOpsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "asset_operations_total",
				Help: "Total asset store operations by kind, operation and result",
			},
			[]string{"kind", "op", "result"},
		)

		treeBuildTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tree_builds_total",
				Help: "Total asset tree builds by result",
			},
			[]string{"result"},
		)
		treeBuildLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tree_build_latency_seconds",
				Help:    "Asset tree build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			calculationsTotal,
			calculationsLatency,
			recordsStored,
			historyExportTotal,
			historyExportLatency,
			assetOpsTotal,
			treeBuildTotal,
			treeBuildLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// ObserveCalculation records calculation latency and result.
func ObserveCalculation(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if calculationsTotal != nil {
		calculationsTotal.WithLabelValues(result).Inc()
	}
	if calculationsLatency != nil {
		calculationsLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncRecordStored increments the stored-record counter.
func IncRecordStored(result string) {
	if result == "" {
		result = resultSuccess
	}
	if recordsStored != nil {
		recordsStored.WithLabelValues(result).Inc()
	}
}

// ObserveHistoryExport records export latency and result.
func ObserveHistoryExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if historyExportTotal != nil {
		historyExportTotal.WithLabelValues(format, result).Inc()
	}
	if historyExportLatency != nil {
		historyExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncAssetOp increments the asset operation counter.
func IncAssetOp(kind, op, result string) {
	if result == "" {
		result = resultSuccess
	}
	if assetOpsTotal != nil {
		assetOpsTotal.WithLabelValues(kind, op, result).Inc()
	}
}

// ObserveTreeBuild records tree build latency and result.
func ObserveTreeBuild(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if treeBuildTotal != nil {
		treeBuildTotal.WithLabelValues(result).Inc()
	}
	if treeBuildLatency != nil {
		treeBuildLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
