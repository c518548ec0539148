package types

import "testing"

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from ReferralStatus
		to   ReferralStatus
		ok   bool
	}{
		{StatusPending, StatusContacted, true},
		{StatusPending, StatusDeclined, true},
		{StatusPending, StatusNotEligible, true},
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusPending, false},

		{StatusContacted, StatusInProgress, true},
		{StatusContacted, StatusDeclined, true},
		{StatusContacted, StatusNotEligible, true},
		{StatusContacted, StatusPending, false},
		{StatusContacted, StatusCompleted, false},

		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusDeclined, true},
		{StatusInProgress, StatusNotEligible, true},
		{StatusInProgress, StatusContacted, false},
		{StatusInProgress, StatusPending, false},

		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusContacted, false},
		{StatusCompleted, StatusDeclined, false},
		{StatusDeclined, StatusPending, false},
		{StatusDeclined, StatusCompleted, false},
		{StatusNotEligible, StatusPending, false},
		{StatusNotEligible, StatusContacted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[ReferralStatus]bool{
		StatusPending:     false,
		StatusContacted:   false,
		StatusInProgress:  false,
		StatusCompleted:   true,
		StatusDeclined:    true,
		StatusNotEligible: true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s IsTerminal: got %v want %v", status, got, want)
		}
	}
}

func TestParseReferralStatus(t *testing.T) {
	if _, ok := ParseReferralStatus("contacted"); !ok {
		t.Fatal("contacted should parse")
	}
	if _, ok := ParseReferralStatus("archived"); ok {
		t.Fatal("archived should not parse")
	}
	if _, ok := ParseReferralStatus(""); ok {
		t.Fatal("empty status should not parse")
	}
}
