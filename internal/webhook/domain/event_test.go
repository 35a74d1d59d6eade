package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseNestedData(t *testing.T) {
	evt, err := Parse([]byte(`{"type":"order.created","data":{"id":"ord_1","amount":990}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.Type != "order.created" {
		t.Fatalf("type = %s", evt.Type)
	}
	if String(evt.Data, "id") != "ord_1" {
		t.Fatalf("data id = %s", String(evt.Data, "id"))
	}
	if Int64(evt.Data, "amount") != 990 {
		t.Fatalf("amount = %d", Int64(evt.Data, "amount"))
	}
}

func TestParseTopLevelFallback(t *testing.T) {
	evt, err := Parse([]byte(`{"type":"checkout.created","id":"chk_1","status":"open"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if String(evt.Data, "id") != "chk_1" {
		t.Fatalf("data id = %s, want top-level payload as data", String(evt.Data, "id"))
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte(`not json`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("err = %v, want invalid payload", err)
	}
	if _, err := Parse([]byte(`{"data":{"id":"x"}}`)); !errors.Is(err, ErrMissingEventType) {
		t.Fatalf("err = %v, want missing event type", err)
	}
	if _, err := Parse([]byte(`{"type":"  "}`)); !errors.Is(err, ErrMissingEventType) {
		t.Fatalf("err = %v, want missing event type for blank", err)
	}
}

func TestFieldHelpers(t *testing.T) {
	data := map[string]any{
		"flag":  true,
		"when":  "2026-01-10T08:30:00+07:00",
		"bad":   "not-a-time",
		"inner": map[string]any{"k": "v"},
	}

	if !Bool(data, "flag") || Bool(data, "missing") {
		t.Fatal("bool helper")
	}
	if Map(data, "inner")["k"] != "v" {
		t.Fatal("map helper")
	}
	if len(Map(data, "missing")) != 0 {
		t.Fatal("missing map must be empty, not nil panic")
	}

	when := Time(data, "when")
	if when == nil {
		t.Fatal("time helper returned nil")
	}
	if want := time.Date(2026, 1, 10, 1, 30, 0, 0, time.UTC); !when.Equal(want) {
		t.Fatalf("when = %v, want %v normalized to UTC", when, want)
	}
	if Time(data, "bad") != nil {
		t.Fatal("unparseable time must be nil")
	}
	if Time(data, "missing") != nil {
		t.Fatal("missing time must be nil")
	}
}
