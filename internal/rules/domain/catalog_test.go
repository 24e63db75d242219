package rules

import "testing"

func TestBuiltinRulesValid(t *testing.T) {
	catalog := BuiltinRules()
	if len(catalog) != 33 {
		t.Fatalf("catalog size=%d want 33", len(catalog))
	}

	seen := make(map[string]bool, len(catalog))
	byType := make(map[RuleType]int)
	for _, rule := range catalog {
		if err := rule.Validate(); err != nil {
			t.Fatalf("catalog rule %s invalid: %v", rule.ID, err)
		}
		if !rule.Enabled {
			t.Fatalf("catalog rule %s must be enabled", rule.ID)
		}
		if seen[rule.ID] {
			t.Fatalf("duplicate catalog rule id %s", rule.ID)
		}
		seen[rule.ID] = true
		byType[rule.Type]++
	}

	if byType[TypeSimple] != 17 {
		t.Fatalf("simple rules=%d want 17", byType[TypeSimple])
	}
	if byType[TypeComposite] != 12 {
		t.Fatalf("composite rules=%d want 12", byType[TypeComposite])
	}
	if byType[TypeRateChange] != 2 {
		t.Fatalf("rate change rules=%d want 2", byType[TypeRateChange])
	}
	if byType[TypeHistorical] != 2 {
		t.Fatalf("historical rules=%d want 2", byType[TypeHistorical])
	}
}

func TestBuiltinHistoricalRulesWindow(t *testing.T) {
	for _, rule := range BuiltinRules() {
		if rule.Type != TypeHistorical {
			continue
		}
		if rule.Window() != DefaultWindowMinutes {
			t.Fatalf("historical rule %s window=%d want %d", rule.ID, rule.Window(), DefaultWindowMinutes)
		}
		if rule.Aggregation != AggregateAvg {
			t.Fatalf("historical rule %s aggregation=%q want avg", rule.ID, rule.Aggregation)
		}
	}
}
