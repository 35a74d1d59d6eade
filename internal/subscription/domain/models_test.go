package domain

import (
	"testing"
	"time"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"incomplete", StatusIncomplete},
		{"incomplete_expired", StatusIncompleteExpired},
		{"trialing", StatusTrialing},
		{"active", StatusActive},
		{"past_due", StatusPastDue},
		{"canceled", StatusCanceled},
		{"unpaid", StatusUnpaid},
		{"revoked", StatusRevoked},
		{"", StatusIncomplete},
		{"paused", StatusIncomplete},
		{"ACTIVE", StatusIncomplete},
	}
	for _, tc := range cases {
		if got := MapStatus(tc.raw); got != tc.want {
			t.Errorf("MapStatus(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestValidStates(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * 24 * time.Hour)
	past := now.Add(-10 * 24 * time.Hour)

	active := Subscription{Status: StatusActive}
	if !active.Valid(now) {
		t.Fatal("active subscription must be valid")
	}

	trialing := Subscription{Status: StatusTrialing}
	if !trialing.Valid(now) {
		t.Fatal("trialing subscription must be valid")
	}

	onTrial := Subscription{Status: StatusIncomplete, TrialEndsAt: &future}
	if !onTrial.Valid(now) {
		t.Fatal("open trial window must be valid")
	}
	if !onTrial.OnTrial(now) {
		t.Fatal("expected OnTrial before trial_ends_at")
	}

	pastDue := Subscription{Status: StatusPastDue}
	if pastDue.Valid(now) {
		t.Fatal("past_due subscription must not be valid")
	}
	if !pastDue.PastDue() {
		t.Fatal("expected PastDue")
	}

	revoked := Subscription{Status: StatusRevoked, EndsAt: &past}
	if revoked.Valid(now) {
		t.Fatal("revoked subscription must not be valid")
	}
}

func TestGracePeriodBoundary(t *testing.T) {
	endsAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	canceled := Subscription{Status: StatusCanceled, EndsAt: &endsAt}

	before := endsAt.Add(-time.Hour)
	if !canceled.OnGracePeriod(before) {
		t.Fatal("expected grace period before ends_at")
	}
	if !canceled.Valid(before) {
		t.Fatal("grace period must keep the subscription valid")
	}
	if canceled.Ended(before) {
		t.Fatal("not ended while on grace period")
	}

	// Exactly at ends_at access lapses.
	if canceled.OnGracePeriod(endsAt) {
		t.Fatal("grace period must lapse at ends_at")
	}

	after := endsAt.Add(time.Hour)
	if canceled.Valid(after) {
		t.Fatal("expired cancellation must not be valid")
	}
	if !canceled.Ended(after) {
		t.Fatal("expected Ended after grace period")
	}
}

func TestSubscriptionDetailAccessors(t *testing.T) {
	detail := SubscriptionDetail{
		Items: []SubscriptionItem{
			{
				ProductID:          "prod_1",
				ProductName:        "Pro",
				ProductDescription: "Pro plan",
				PriceID:            "price_1",
				RecurringInterval:  "month",
			},
			{ProductID: "prod_2", PriceID: "price_2"},
		},
	}

	if got := detail.ProductName(); got != "Pro" {
		t.Fatalf("product name = %q", got)
	}
	if got := detail.Description(); got != "Pro plan" {
		t.Fatalf("description = %q", got)
	}
	if got := detail.ProductID(); got != "prod_1" {
		t.Fatalf("product id = %q", got)
	}
	if got := detail.PriceID(); got != "price_1" {
		t.Fatalf("price id = %q", got)
	}
	if got := detail.Interval(); got != "month" {
		t.Fatalf("interval = %q", got)
	}

	empty := SubscriptionDetail{}
	if empty.ProductName() != "" || empty.PriceID() != "" {
		t.Fatal("accessors on empty detail must return empty strings")
	}
}

func TestEndDateFormatting(t *testing.T) {
	endsAt := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	sub := Subscription{EndsAt: &endsAt}

	if got := sub.EndDate("2006-01-02"); got != "2026-03-15" {
		t.Fatalf("end date = %q", got)
	}
	if got := (Subscription{}).EndDate("2006-01-02"); got != "" {
		t.Fatalf("unset end date = %q", got)
	}
	if got := (Subscription{}).TrialEndDate("2006-01-02"); got != "" {
		t.Fatalf("unset trial end date = %q", got)
	}

	now := endsAt.Add(-72*time.Hour - 30*time.Minute)
	if got := sub.DaysUntilEnds(now); got != 3 {
		t.Fatalf("days until ends = %d, want 3", got)
	}
	if got := sub.DaysUntilEnds(endsAt.Add(time.Hour)); got != 0 {
		t.Fatalf("days after end = %d, want 0", got)
	}
}
