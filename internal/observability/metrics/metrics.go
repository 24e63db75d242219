package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "gridwatch_"

	resultSuccess = "success"
	resultError   = "error"

	evalResultTriggered = "triggered"
	evalResultClear     = "clear"
	evalResultSkipped   = "skipped"
	evalResultError     = "error"
)

var (
	registerOnce sync.Once

	evaluationPasses      *prometheus.CounterVec
	evaluationPassLatency *prometheus.HistogramVec
	evaluationAssets      prometheus.Histogram
	evaluationPanics      prometheus.Counter
	ticksCoalesced        prometheus.Counter

	ruleEvaluations *prometheus.CounterVec

	alarmEventsTotal *prometheus.CounterVec
	streamClients    prometheus.Gauge

	ruleImportTotal *prometheus.CounterVec

	alarmExportTotal   *prometheus.CounterVec
	alarmExportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		evaluationPasses = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluation_passes_total",
				Help: "Total scheduled evaluation passes by result",
			},
			[]string{"result"},
		)
		evaluationPassLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "evaluation_pass_latency_seconds",
				Help:    "Evaluation pass latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		evaluationAssets = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "evaluation_pass_assets",
				Help:    "Assets examined per evaluation pass",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		)
		evaluationPanics = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluation_panics_recovered_total",
				Help: "Total panics recovered inside rule evaluation",
			},
		)
		ticksCoalesced = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluation_ticks_coalesced_total",
				Help: "Total scheduler ticks skipped because a pass was running",
			},
		)

		ruleEvaluations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rule_evaluations_total",
				Help: "Total rule evaluations by rule type and result",
			},
			[]string{"rule_type", "result"},
		)

		alarmEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_events_total",
				Help: "Total alarm lifecycle events by type",
			},
			[]string{"event"},
		)
		streamClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_clients",
				Help: "Currently connected alarm stream clients",
			},
		)

		ruleImportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rule_import_total",
				Help: "Total rule import operations by result",
			},
			[]string{"result"},
		)

		alarmExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_export_total",
				Help: "Total alarm report exports by format and result",
			},
			[]string{"format", "result"},
		)
		alarmExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "alarm_export_latency_seconds",
				Help:    "Alarm report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			evaluationPasses,
			evaluationPassLatency,
			evaluationAssets,
			evaluationPanics,
			ticksCoalesced,
			ruleEvaluations,
			alarmEventsTotal,
			streamClients,
			ruleImportTotal,
			alarmExportTotal,
			alarmExportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveEvaluationPass records a full pass with its duration and the
// number of assets examined.
func ObserveEvaluationPass(result string, duration time.Duration, assets int) {
	if result == "" {
		result = resultSuccess
	}
	if evaluationPasses != nil {
		evaluationPasses.WithLabelValues(result).Inc()
	}
	if evaluationPassLatency != nil {
		evaluationPassLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if evaluationAssets != nil && assets >= 0 {
		evaluationAssets.Observe(float64(assets))
	}
}

// IncRuleEvaluation increments the per-rule evaluation counter.
func IncRuleEvaluation(ruleType, result string) {
	if ruleType == "" {
		ruleType = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	if ruleEvaluations != nil {
		ruleEvaluations.WithLabelValues(ruleType, result).Inc()
	}
}

// IncEvaluationPanic increments the recovered-panic counter.
func IncEvaluationPanic() {
	if evaluationPanics != nil {
		evaluationPanics.Inc()
	}
}

// IncTickCoalesced increments the coalesced-tick counter.
func IncTickCoalesced() {
	if ticksCoalesced != nil {
		ticksCoalesced.Inc()
	}
}

// IncAlarmEvent increments alarm lifecycle counters.
func IncAlarmEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if alarmEventsTotal != nil {
		alarmEventsTotal.WithLabelValues(event).Inc()
	}
}

// AddAlarmEvents increments an alarm lifecycle counter by count.
func AddAlarmEvents(event string, count int) {
	if count <= 0 {
		return
	}
	if event == "" {
		event = "unknown"
	}
	if alarmEventsTotal != nil {
		alarmEventsTotal.WithLabelValues(event).Add(float64(count))
	}
}

// IncStreamClient tracks a new stream subscriber.
func IncStreamClient() {
	if streamClients != nil {
		streamClients.Inc()
	}
}

// DecStreamClient tracks a departed stream subscriber.
func DecStreamClient() {
	if streamClients != nil {
		streamClients.Dec()
	}
}

// IncRuleImport increments the rule import counter.
func IncRuleImport(result string) {
	if result == "" {
		result = resultSuccess
	}
	if ruleImportTotal != nil {
		ruleImportTotal.WithLabelValues(result).Inc()
	}
}

// ObserveAlarmExport records export latency and result.
func ObserveAlarmExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if alarmExportTotal != nil {
		alarmExportTotal.WithLabelValues(format, result).Inc()
	}
	if alarmExportLatency != nil {
		alarmExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	EvalResultTriggered = evalResultTriggered
	EvalResultClear     = evalResultClear
	EvalResultSkipped   = evalResultSkipped
	EvalResultError     = evalResultError
)
