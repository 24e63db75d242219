package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	alarms "gridwatch/internal/alarms/domain"
	masterdata "gridwatch/internal/masterdata/domain"
	"gridwatch/internal/observability/metrics"
	rules "gridwatch/internal/rules/domain"
	telemetry "gridwatch/internal/telemetry/domain"
)

const defaultWorkers = 4

// RuleSource supplies enabled rules and records trigger counts.
type RuleSource interface {
	ListEnabled(ctx context.Context) ([]rules.Rule, error)
	IncrementTriggerCount(ctx context.Context, id string) error
}

// ReadingSource supplies the reading history the evaluators consume.
type ReadingSource interface {
	Latest(ctx context.Context, assetID string) (*telemetry.Reading, error)
	Previous(ctx context.Context, assetID string) (*telemetry.Reading, error)
	Window(ctx context.Context, assetID string, minutes int) ([]telemetry.Reading, error)
}

// ReadingCache is an optional fast path for the latest reading. The
// monitor populates it after repository reads.
type ReadingCache interface {
	Latest(ctx context.Context, assetID string) (*telemetry.Reading, error)
	SetLatest(ctx context.Context, reading *telemetry.Reading) error
}

// AssetSource supplies the monitored asset population.
type AssetSource interface {
	ListMonitored(ctx context.Context) ([]masterdata.Asset, error)
}

// AlarmSink persists synthesized alarms. Raise returns false when an
// open alarm with the same fingerprint suppressed the new one.
type AlarmSink interface {
	Raise(ctx context.Context, alarm *alarms.Alarm) (bool, error)
}

// Monitor evaluates the rule catalog against asset readings and raises
// alarms for triggered rules.
type Monitor struct {
	rules      RuleSource
	assets     AssetSource
	readings   ReadingSource
	sink       AlarmSink
	dispatcher *Dispatcher
	cache      ReadingCache
	logger     *log.Logger
	workers    int
}

// MonitorOption customizes the monitor.
type MonitorOption func(*Monitor)

// WithWorkers sets the per-pass worker count.
func WithWorkers(workers int) MonitorOption {
	return func(m *Monitor) {
		if workers > 0 {
			m.workers = workers
		}
	}
}

// WithReadingCache attaches an optional latest-reading cache.
func WithReadingCache(cache ReadingCache) MonitorOption {
	return func(m *Monitor) {
		m.cache = cache
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor constructs a monitor.
func NewMonitor(ruleSource RuleSource, assets AssetSource, readings ReadingSource, sink AlarmSink, opts ...MonitorOption) (*Monitor, error) {
	if ruleSource == nil {
		return nil, errors.New("rules: nil rule source")
	}
	if assets == nil {
		return nil, errors.New("rules: nil asset source")
	}
	if readings == nil {
		return nil, errors.New("rules: nil reading source")
	}
	if sink == nil {
		return nil, errors.New("rules: nil alarm sink")
	}

	historical, err := NewHistoricalEvaluator(readings)
	if err != nil {
		return nil, err
	}
	rateChange, err := NewRateChangeEvaluator(readings)
	if err != nil {
		return nil, err
	}
	dispatcher, err := NewDispatcher(historical, rateChange)
	if err != nil {
		return nil, err
	}

	monitor := &Monitor{
		rules:      ruleSource,
		assets:     assets,
		readings:   readings,
		sink:       sink,
		dispatcher: dispatcher,
		logger:     log.Default(),
		workers:    defaultWorkers,
	}
	for _, opt := range opts {
		opt(monitor)
	}
	return monitor, nil
}

// EvaluateAsset runs every enabled rule against one reading and returns
// the alarms that were actually created. Suppressed duplicates and
// skipped evaluations produce no alarm and no error.
func (m *Monitor) EvaluateAsset(ctx context.Context, assetID string, reading telemetry.Reading, site, region string) ([]alarms.Alarm, error) {
	if m == nil {
		return nil, errors.New("rules: nil monitor")
	}
	if assetID == "" {
		return nil, errors.New("rules: asset id required")
	}
	list, err := m.rules.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	return m.runRules(ctx, list, assetID, reading, site, region), nil
}

// EvaluateAllAssets runs one batch pass: every monitored asset's latest
// reading against the applicable enabled rules, fanned out over a
// worker pool. Returns the number of alarms created.
func (m *Monitor) EvaluateAllAssets(ctx context.Context) (int, error) {
	if m == nil {
		return 0, errors.New("rules: nil monitor")
	}

	start := time.Now()
	passResult := metrics.ResultSuccess
	assetCount := 0
	defer func() {
		metrics.ObserveEvaluationPass(passResult, time.Since(start), assetCount)
	}()

	list, err := m.rules.ListEnabled(ctx)
	if err != nil {
		passResult = metrics.ResultError
		return 0, err
	}
	if len(list) == 0 {
		m.logger.Printf("evaluation pass: no enabled rules")
		return 0, nil
	}

	assets, err := m.assets.ListMonitored(ctx)
	if err != nil {
		passResult = metrics.ResultError
		return 0, err
	}
	assetCount = len(assets)

	workers := m.workers
	if workers > len(assets) && len(assets) > 0 {
		workers = len(assets)
	}

	jobs := make(chan masterdata.Asset)
	var wg sync.WaitGroup
	var created atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range jobs {
				created.Add(int64(m.evaluateAssetForPass(ctx, list, asset)))
			}
		}()
	}

feed:
	for _, asset := range assets {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- asset:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		passResult = metrics.ResultError
		return int(created.Load()), err
	}

	m.logger.Printf("evaluation pass complete: assets=%d rules=%d alarms=%d elapsed=%s",
		len(assets), len(list), created.Load(), time.Since(start).Round(time.Millisecond))
	return int(created.Load()), nil
}

func (m *Monitor) evaluateAssetForPass(ctx context.Context, list []rules.Rule, asset masterdata.Asset) int {
	reading := m.latestReading(ctx, asset.ID)
	if reading == nil {
		return 0
	}

	applicable := make([]rules.Rule, 0, len(list))
	for _, rule := range list {
		if !masterdata.CategoryApplies(rule.Category, asset.Type) {
			continue
		}
		if !rule.AppliesToScope(asset.SiteID, asset.Region) {
			continue
		}
		applicable = append(applicable, rule)
	}
	if len(applicable) == 0 {
		return 0
	}

	return len(m.runRules(ctx, applicable, asset.ID, *reading, asset.SiteName, asset.Region))
}

// runRules evaluates each rule in isolation. A failing or panicking rule
// is counted and logged, never allowed to stop the remaining rules.
func (m *Monitor) runRules(ctx context.Context, list []rules.Rule, assetID string, reading telemetry.Reading, site, region string) []alarms.Alarm {
	created := make([]alarms.Alarm, 0)
	for _, rule := range list {
		result, err := m.evaluateRule(ctx, rule, assetID, reading)
		if err != nil {
			metrics.IncRuleEvaluation(string(rule.Type), metrics.EvalResultError)
			m.logger.Printf("rule %s evaluation failed: asset=%s err=%v", rule.ID, assetID, err)
			continue
		}
		metrics.IncRuleEvaluation(string(rule.Type), evalResultLabel(result))
		if !result.Triggered {
			continue
		}

		alarm := buildAlarm(rule, result, assetID, site, region)
		wasCreated, err := m.sink.Raise(ctx, alarm)
		if err != nil {
			m.logger.Printf("raise alarm failed: rule=%s asset=%s err=%v", rule.ID, assetID, err)
			continue
		}
		if !wasCreated {
			continue
		}
		created = append(created, *alarm)
		if err := m.rules.IncrementTriggerCount(ctx, rule.ID); err != nil {
			m.logger.Printf("increment trigger count failed: rule=%s err=%v", rule.ID, err)
		}
	}
	return created
}

func (m *Monitor) evaluateRule(ctx context.Context, rule rules.Rule, assetID string, reading telemetry.Reading) (result rules.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncEvaluationPanic()
			m.logger.Printf("rule %s panic recovered: asset=%s panic=%v\n%s", rule.ID, assetID, r, debug.Stack())
			err = fmt.Errorf("rule %s: panic: %v", rule.ID, r)
		}
	}()
	return m.dispatcher.Evaluate(ctx, rule, assetID, reading)
}

// latestReading consults the cache first; cache failures fall through to
// the repository, and repository hits refill the cache.
func (m *Monitor) latestReading(ctx context.Context, assetID string) *telemetry.Reading {
	if m.cache != nil {
		reading, err := m.cache.Latest(ctx, assetID)
		if err == nil && reading != nil {
			return reading
		}
		if err != nil {
			m.logger.Printf("reading cache lookup failed: asset=%s err=%v", assetID, err)
		}
	}
	reading, err := m.readings.Latest(ctx, assetID)
	if err != nil {
		m.logger.Printf("latest reading lookup failed: asset=%s err=%v", assetID, err)
		return nil
	}
	if reading != nil && m.cache != nil {
		_ = m.cache.SetLatest(ctx, reading)
	}
	return reading
}

func buildAlarm(rule rules.Rule, result rules.EvaluationResult, assetID, site, region string) *alarms.Alarm {
	return &alarms.Alarm{
		Site:            site,
		Region:          region,
		Severity:        rule.Severity,
		Category:        rule.Category,
		Message:         result.Message,
		RuleID:          rule.ID,
		AssetID:         assetID,
		ConditionsMet:   result.ConditionsMet,
		TotalConditions: result.TotalConditions,
		Samples:         result.Samples,
		RateOfChange:    result.RateOfChange,
	}
}

func evalResultLabel(result rules.EvaluationResult) string {
	switch {
	case result.Skipped():
		return metrics.EvalResultSkipped
	case result.Triggered:
		return metrics.EvalResultTriggered
	default:
		return metrics.EvalResultClear
	}
}
