package alarms

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusActive, StatusAcknowledged, true},
		{StatusActive, StatusResolved, true},
		{StatusActive, StatusArchived, true},
		{StatusAcknowledged, StatusResolved, true},
		{StatusAcknowledged, StatusArchived, true},
		{StatusAcknowledged, StatusActive, false},
		{StatusResolved, StatusAcknowledged, false},
		{StatusResolved, StatusArchived, false},
		{StatusResolved, StatusActive, false},
		{StatusArchived, StatusActive, false},
		{StatusArchived, StatusResolved, false},
		{"bogus", StatusActive, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOpenAndTerminal(t *testing.T) {
	if !Open(StatusActive) || !Open(StatusAcknowledged) {
		t.Fatal("active and acknowledged must count as open")
	}
	if Open(StatusResolved) || Open(StatusArchived) {
		t.Fatal("resolved and archived must not count as open")
	}
	if !Terminal(StatusResolved) || !Terminal(StatusArchived) {
		t.Fatal("resolved and archived must be terminal")
	}
	if Terminal(StatusActive) || Terminal(StatusAcknowledged) {
		t.Fatal("open statuses must not be terminal")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("asset-1", "battery_low", "critical")
	b := Fingerprint("asset-1", "battery_low", "critical")
	if a != b {
		t.Fatalf("same inputs produced different fingerprints: %q vs %q", a, b)
	}
	if a == Fingerprint("asset-2", "battery_low", "critical") {
		t.Fatal("different assets must produce different fingerprints")
	}
	if a == Fingerprint("asset-1", "battery_low", "warning") {
		t.Fatal("different severities must produce different fingerprints")
	}
}
