package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	alarms "gridwatch/internal/alarms/domain"
)

type stubStore struct {
	mu      sync.Mutex
	alarms  map[string]*alarms.Alarm
	created int
}

func newStubStore() *stubStore {
	return &stubStore{alarms: make(map[string]*alarms.Alarm)}
}

func (s *stubStore) Create(_ context.Context, alarm *alarms.Alarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *alarm
	s.alarms[alarm.ID] = &copied
	s.created++
	return nil
}

func (s *stubStore) GetByID(_ context.Context, id string) (*alarms.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alarm, ok := s.alarms[id]
	if !ok {
		return nil, nil
	}
	copied := *alarm
	return &copied, nil
}

func (s *stubStore) HasOpen(_ context.Context, assetID, ruleID, severity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, alarm := range s.alarms {
		if alarm.AssetID == assetID && alarm.RuleID == ruleID && alarm.Severity == severity && alarms.Open(alarm.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) MarkAcknowledged(_ context.Context, id, by string, ackedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alarm, ok := s.alarms[id]; ok {
		alarm.Status = alarms.StatusAcknowledged
		alarm.AcknowledgedAt = ackedAt
		alarm.AcknowledgedBy = by
		alarm.UpdatedAt = ackedAt
	}
	return nil
}

func (s *stubStore) MarkResolved(_ context.Context, id, by, notes string, resolvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alarm, ok := s.alarms[id]; ok {
		alarm.Status = alarms.StatusResolved
		alarm.ResolvedAt = resolvedAt
		alarm.ResolvedBy = by
		alarm.ResolutionNotes = notes
		alarm.UpdatedAt = resolvedAt
	}
	return nil
}

func (s *stubStore) ArchiveOpen(_ context.Context, archivedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, alarm := range s.alarms {
		if alarms.Open(alarm.Status) {
			alarm.Status = alarms.StatusArchived
			alarm.ArchivedAt = archivedAt
			alarm.UpdatedAt = archivedAt
			affected++
		}
	}
	return affected, nil
}

func (s *stubStore) List(_ context.Context, _ alarms.ListFilter) ([]alarms.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []alarms.Alarm
	for _, alarm := range s.alarms {
		result = append(result, *alarm)
	}
	return result, nil
}

func (s *stubStore) CountActiveBySite(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, alarm := range s.alarms {
		if alarm.Status == alarms.StatusActive {
			counts[alarm.Site]++
		}
	}
	return counts, nil
}

func (s *stubStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []AlarmEvent
}

func (r *recordingNotifier) Notify(_ context.Context, event AlarmEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingNotifier) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestAlarm() *alarms.Alarm {
	return &alarms.Alarm{
		AssetID:  "asset-1",
		RuleID:   "battery_low",
		Severity: "critical",
		Category: "Battery",
		Site:     "Site A",
		Region:   "North",
		Message:  "battery_voltage is 45.0 V",
	}
}

func TestRaiseCreatesAlarm(t *testing.T) {
	store := newStubStore()
	notifier := &recordingNotifier{}
	clock := fixedClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	service, err := NewService(store, WithNotifier(notifier), WithClock(clock))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	alarm := newTestAlarm()
	created, err := service.Raise(context.Background(), alarm)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if !created {
		t.Fatal("expected alarm to be created")
	}
	if !strings.HasPrefix(alarm.ID, "alarm-") {
		t.Fatalf("expected generated alarm id, got %q", alarm.ID)
	}
	if alarm.Status != alarms.StatusActive {
		t.Fatalf("expected active status, got %q", alarm.Status)
	}
	if !alarm.Timestamp.Equal(clock.now) {
		t.Fatalf("expected timestamp %v, got %v", clock.now, alarm.Timestamp)
	}
	if got := notifier.Types(); len(got) != 1 || got[0] != "active" {
		t.Fatalf("expected one active event, got %v", got)
	}
}

func TestRaiseSuppressesDuplicate(t *testing.T) {
	store := newStubStore()
	service, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	first := newTestAlarm()
	if created, err := service.Raise(context.Background(), first); err != nil || !created {
		t.Fatalf("first raise: created=%v err=%v", created, err)
	}

	second := newTestAlarm()
	created, err := service.Raise(context.Background(), second)
	if err != nil {
		t.Fatalf("second raise: %v", err)
	}
	if created {
		t.Fatal("expected duplicate to be suppressed")
	}
	if got := store.createdCount(); got != 1 {
		t.Fatalf("expected 1 stored alarm, got %d", got)
	}
}

func TestRaiseAfterResolvedCreatesNew(t *testing.T) {
	store := newStubStore()
	service, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	first := newTestAlarm()
	if _, err := service.Raise(context.Background(), first); err != nil {
		t.Fatalf("first raise: %v", err)
	}
	if _, err := service.Resolve(context.Background(), first.ID, "operator", "voltage restored"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	second := newTestAlarm()
	created, err := service.Raise(context.Background(), second)
	if err != nil {
		t.Fatalf("second raise: %v", err)
	}
	if !created {
		t.Fatal("expected new alarm after resolution")
	}
	if got := store.createdCount(); got != 2 {
		t.Fatalf("expected 2 stored alarms, got %d", got)
	}
}

func TestRaiseConcurrentSameFingerprint(t *testing.T) {
	store := newStubStore()
	service, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	var createdCount int64
	var countMu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := service.Raise(context.Background(), newTestAlarm())
			if err != nil {
				t.Errorf("raise: %v", err)
				return
			}
			if created {
				countMu.Lock()
				createdCount++
				countMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Fatalf("expected exactly 1 created alarm, got %d", createdCount)
	}
	if got := store.createdCount(); got != 1 {
		t.Fatalf("expected 1 stored alarm, got %d", got)
	}
}

func TestAcknowledgeLifecycle(t *testing.T) {
	store := newStubStore()
	notifier := &recordingNotifier{}
	service, err := NewService(store, WithNotifier(notifier))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	alarm := newTestAlarm()
	if _, err := service.Raise(context.Background(), alarm); err != nil {
		t.Fatalf("raise: %v", err)
	}

	acked, err := service.Acknowledge(context.Background(), alarm.ID, "operator")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if acked.Status != alarms.StatusAcknowledged {
		t.Fatalf("expected acknowledged, got %q", acked.Status)
	}
	if acked.AcknowledgedBy != "operator" {
		t.Fatalf("expected acknowledged_by operator, got %q", acked.AcknowledgedBy)
	}

	// Repeat acknowledgement is a no-op.
	again, err := service.Acknowledge(context.Background(), alarm.ID, "someone-else")
	if err != nil {
		t.Fatalf("repeat acknowledge: %v", err)
	}
	if again.AcknowledgedBy != "operator" {
		t.Fatalf("repeat acknowledge must not overwrite, got %q", again.AcknowledgedBy)
	}

	if _, err := service.Resolve(context.Background(), alarm.ID, "operator", ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := service.Acknowledge(context.Background(), alarm.ID, "operator"); err != alarms.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition after resolve, got %v", err)
	}

	types := notifier.Types()
	want := []string{"active", "acknowledged", "resolved"}
	if len(types) != len(want) {
		t.Fatalf("expected events %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, types)
		}
	}
}

func TestResolveUnknownAlarm(t *testing.T) {
	service, err := NewService(newStubStore())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := service.Resolve(context.Background(), "missing", "operator", ""); err != alarms.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveOpen(t *testing.T) {
	store := newStubStore()
	service, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	first := newTestAlarm()
	if _, err := service.Raise(context.Background(), first); err != nil {
		t.Fatalf("raise first: %v", err)
	}
	second := newTestAlarm()
	second.RuleID = "fuel_low"
	second.Category = "Fuel Sensor"
	if _, err := service.Raise(context.Background(), second); err != nil {
		t.Fatalf("raise second: %v", err)
	}
	if _, err := service.Acknowledge(context.Background(), second.ID, "operator"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	affected, err := service.ArchiveOpen(context.Background())
	if err != nil {
		t.Fatalf("archive open: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 archived, got %d", affected)
	}

	archived, err := service.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if archived.Status != alarms.StatusArchived {
		t.Fatalf("expected archived status, got %q", archived.Status)
	}
	if _, err := service.Resolve(context.Background(), first.ID, "operator", ""); err != alarms.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition on archived alarm, got %v", err)
	}
}
