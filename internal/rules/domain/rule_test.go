package rules

import "testing"

func TestOperatorCompare(t *testing.T) {
	cases := []struct {
		value     float64
		operator  Operator
		threshold float64
		want      bool
	}{
		{8, OperatorLessOrEqual, 10, true},
		{10, OperatorLessOrEqual, 10, true},
		{10.1, OperatorLessOrEqual, 10, false},
		{9.99, OperatorLess, 10, true},
		{10, OperatorLess, 10, false},
		{220, OperatorGreaterOrEqual, 174, true},
		{174, OperatorGreaterOrEqual, 174, true},
		{173.9, OperatorGreaterOrEqual, 174, false},
		{56, OperatorGreater, 55, true},
		{55, OperatorGreater, 55, false},
		{0.009, OperatorEqual, 0, true},
		{0.01, OperatorEqual, 0, false},
		{-0.005, OperatorEqual, 0, true},
		{0.009, OperatorNotEqual, 0, false},
		{0.011, OperatorNotEqual, 0, true},
	}
	for _, tc := range cases {
		if got := tc.operator.Compare(tc.value, tc.threshold); got != tc.want {
			t.Fatalf("Compare(%v %s %v)=%v want %v", tc.value, tc.operator, tc.threshold, got, tc.want)
		}
	}
}

func TestOperatorCompareUnknown(t *testing.T) {
	if Operator("~=").Compare(1, 1) {
		t.Fatal("unknown operator must compare false")
	}
	if Operator("").Compare(0, 0) {
		t.Fatal("empty operator must compare false")
	}
}

func TestRuleValidate(t *testing.T) {
	valid := Rule{
		ID: "battery_low", Name: "Battery Low", Severity: SeverityCritical,
		Category: CategoryBattery, Type: TypeSimple, Enabled: true,
		Conditions: []Condition{{Parameter: "battery_voltage", Operator: OperatorLessOrEqual, Value: 46}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"empty id", func(r *Rule) { r.ID = "" }},
		{"empty name", func(r *Rule) { r.Name = "" }},
		{"bad severity", func(r *Rule) { r.Severity = "fatal" }},
		{"bad type", func(r *Rule) { r.Type = "mystery" }},
		{"no conditions", func(r *Rule) { r.Conditions = nil }},
		{"bad operator", func(r *Rule) { r.Conditions[0].Operator = "~=" }},
		{"empty parameter", func(r *Rule) { r.Conditions[0].Parameter = "" }},
	}
	for _, tc := range cases {
		rule := valid
		rule.Conditions = append([]Condition(nil), valid.Conditions...)
		tc.mutate(&rule)
		if err := rule.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestRuleWindowDefault(t *testing.T) {
	if got := (Rule{}).Window(); got != DefaultWindowMinutes {
		t.Fatalf("default window=%d want %d", got, DefaultWindowMinutes)
	}
	if got := (Rule{WindowMinutes: 60}).Window(); got != 60 {
		t.Fatalf("window=%d want 60", got)
	}
}

func TestRuleAppliesToScope(t *testing.T) {
	all := Rule{AppliesTo: AppliesToAll}
	if !all.AppliesToScope("site-1", "region-1") {
		t.Fatal("applies_to=all must cover every asset")
	}
	unset := Rule{}
	if !unset.AppliesToScope("site-1", "region-1") {
		t.Fatal("unset scope must cover every asset")
	}

	site := Rule{AppliesTo: AppliesToSite, SiteID: "site-1"}
	if !site.AppliesToScope("site-1", "region-9") {
		t.Fatal("site scope must match its site")
	}
	if site.AppliesToScope("site-2", "region-9") {
		t.Fatal("site scope must exclude other sites")
	}

	region := Rule{AppliesTo: AppliesToRegion, RegionID: "region-1"}
	if !region.AppliesToScope("site-9", "region-1") {
		t.Fatal("region scope must match its region")
	}
	if region.AppliesToScope("site-9", "region-2") {
		t.Fatal("region scope must exclude other regions")
	}
}
