package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	alarms "gridwatch/internal/alarms/domain"
	"gridwatch/internal/observability/metrics"
)

// AlarmStore is the persistence surface the service depends on.
type AlarmStore interface {
	Create(ctx context.Context, alarm *alarms.Alarm) error
	GetByID(ctx context.Context, id string) (*alarms.Alarm, error)
	HasOpen(ctx context.Context, assetID, ruleID, severity string) (bool, error)
	MarkAcknowledged(ctx context.Context, id, by string, ackedAt time.Time) error
	MarkResolved(ctx context.Context, id, by, notes string, resolvedAt time.Time) error
	ArchiveOpen(ctx context.Context, archivedAt time.Time) (int64, error)
	List(ctx context.Context, filter alarms.ListFilter) ([]alarms.Alarm, error)
	CountActiveBySite(ctx context.Context) (map[string]int, error)
}

// AlarmNotifier publishes alarm lifecycle events.
type AlarmNotifier interface {
	Notify(ctx context.Context, event AlarmEvent)
}

// AlarmEvent represents a lifecycle update.
type AlarmEvent struct {
	Type  string       `json:"type"`
	Alarm alarms.Alarm `json:"alarm"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service handles alarm creation, deduplication and state transitions.
type Service struct {
	store    AlarmStore
	notifier AlarmNotifier
	clock    Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ServiceOption customizes the alarm service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier AlarmNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs an alarm service.
func NewService(store AlarmStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("alarms: nil store")
	}
	service := &Service{
		store: store,
		clock: systemClock{},
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Raise persists a freshly synthesized alarm unless an open alarm already
// exists for its (asset, rule, severity) fingerprint. The duplicate check
// and the insert run under a per-fingerprint lock so concurrent workers
// cannot both create the same alarm. Returns true when the alarm was
// created.
func (s *Service) Raise(ctx context.Context, alarm *alarms.Alarm) (bool, error) {
	if s == nil {
		return false, errors.New("alarms: nil service")
	}
	if alarm == nil {
		return false, errors.New("alarms: nil alarm")
	}
	if alarm.AssetID == "" || alarm.RuleID == "" || alarm.Severity == "" {
		return false, errors.New("alarms: alarm missing fingerprint fields")
	}

	lock := s.lockFor(alarms.Fingerprint(alarm.AssetID, alarm.RuleID, alarm.Severity))
	lock.Lock()
	defer lock.Unlock()

	open, err := s.store.HasOpen(ctx, alarm.AssetID, alarm.RuleID, alarm.Severity)
	if err != nil {
		return false, err
	}
	if open {
		metrics.IncAlarmEvent("suppressed")
		return false, nil
	}

	now := s.clock.Now().UTC()
	if alarm.ID == "" {
		alarm.ID = NewAlarmID()
	}
	if alarm.Timestamp.IsZero() {
		alarm.Timestamp = now
	}
	if alarm.Site == "" {
		alarm.Site = "Unknown"
	}
	if alarm.Region == "" {
		alarm.Region = "Unknown"
	}
	alarm.Status = alarms.StatusActive
	alarm.CreatedAt = now
	alarm.UpdatedAt = now
	if err := s.store.Create(ctx, alarm); err != nil {
		return false, err
	}
	s.notify(ctx, "active", *alarm)
	return true, nil
}

// Acknowledge moves an alarm from active to acknowledged.
func (s *Service) Acknowledge(ctx context.Context, id, by string) (*alarms.Alarm, error) {
	if s == nil {
		return nil, errors.New("alarms: nil service")
	}
	if id == "" {
		return nil, errors.New("alarms: alarm id required")
	}
	alarm, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alarm == nil {
		return nil, alarms.ErrNotFound
	}
	if alarm.Status == alarms.StatusAcknowledged {
		return alarm, nil
	}
	if !alarms.CanTransition(alarm.Status, alarms.StatusAcknowledged) {
		return nil, alarms.ErrInvalidTransition
	}
	ackedAt := s.clock.Now().UTC()
	if err := s.store.MarkAcknowledged(ctx, alarm.ID, by, ackedAt); err != nil {
		return nil, err
	}
	alarm.Status = alarms.StatusAcknowledged
	alarm.AcknowledgedAt = ackedAt
	alarm.AcknowledgedBy = by
	alarm.UpdatedAt = ackedAt
	s.notify(ctx, "acknowledged", *alarm)
	return alarm, nil
}

// Resolve moves an alarm from active or acknowledged to resolved.
func (s *Service) Resolve(ctx context.Context, id, by, notes string) (*alarms.Alarm, error) {
	if s == nil {
		return nil, errors.New("alarms: nil service")
	}
	if id == "" {
		return nil, errors.New("alarms: alarm id required")
	}
	alarm, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alarm == nil {
		return nil, alarms.ErrNotFound
	}
	if alarm.Status == alarms.StatusResolved {
		return alarm, nil
	}
	if !alarms.CanTransition(alarm.Status, alarms.StatusResolved) {
		return nil, alarms.ErrInvalidTransition
	}
	resolvedAt := s.clock.Now().UTC()
	if err := s.store.MarkResolved(ctx, alarm.ID, by, notes, resolvedAt); err != nil {
		return nil, err
	}
	alarm.Status = alarms.StatusResolved
	alarm.ResolvedAt = resolvedAt
	alarm.ResolvedBy = by
	alarm.ResolutionNotes = notes
	alarm.UpdatedAt = resolvedAt
	s.notify(ctx, "resolved", *alarm)
	return alarm, nil
}

// ArchiveOpen bulk-archives every active or acknowledged alarm and
// returns the number archived.
func (s *Service) ArchiveOpen(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("alarms: nil service")
	}
	affected, err := s.store.ArchiveOpen(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.AddAlarmEvents("archived", int(affected))
	return affected, nil
}

// Get loads a single alarm.
func (s *Service) Get(ctx context.Context, id string) (*alarms.Alarm, error) {
	if s == nil {
		return nil, errors.New("alarms: nil service")
	}
	if id == "" {
		return nil, errors.New("alarms: alarm id required")
	}
	alarm, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alarm == nil {
		return nil, alarms.ErrNotFound
	}
	return alarm, nil
}

// List returns alarms matching the filter.
func (s *Service) List(ctx context.Context, filter alarms.ListFilter) ([]alarms.Alarm, error) {
	if s == nil {
		return nil, errors.New("alarms: nil service")
	}
	return s.store.List(ctx, filter)
}

// CountActiveBySite returns active alarm counts grouped by site label.
func (s *Service) CountActiveBySite(ctx context.Context) (map[string]int, error) {
	if s == nil {
		return nil, errors.New("alarms: nil service")
	}
	return s.store.CountActiveBySite(ctx)
}

func (s *Service) lockFor(fingerprint string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[fingerprint]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[fingerprint] = lock
	}
	return lock
}

func (s *Service) notify(ctx context.Context, eventType string, alarm alarms.Alarm) {
	if s == nil {
		return
	}
	metrics.IncAlarmEvent(eventType)
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, AlarmEvent{Type: eventType, Alarm: alarm})
}

// NewAlarmID returns a unique alarm identifier.
func NewAlarmID() string {
	return "alarm-" + uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
