package product

import (
	"testing"
	"time"
)

func TestReconstructDayHourMinute(t *testing.T) {
	now := time.Date(2026, 7, 31, 14, 5, 0, 0, time.UTC)
	p := Partial{
		Day: 31, Hour: 13, Minute: 55,
		Present: map[Field]bool{FieldDay: true, FieldHour: true, FieldMinute: true},
	}
	got, ok := Reconstruct(p, Anchor{At: now, Horizon: HorizonMETARObservation})
	if !ok {
		t.Fatalf("expected reconstruction to succeed")
	}
	want := time.Date(2026, 7, 31, 13, 55, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReconstructMonthWraparound(t *testing.T) {
	// Packet observed day=1 but now is the last day of the prior month;
	// the naive fill (current month) lands a month in the past, so the
	// +1 month candidate should be chosen instead.
	now := time.Date(2026, 6, 30, 23, 50, 0, 0, time.UTC)
	p := Partial{
		Day: 1, Hour: 0, Minute: 5,
		Present: map[Field]bool{FieldDay: true, FieldHour: true, FieldMinute: true},
	}
	got, ok := Reconstruct(p, Anchor{At: now, Horizon: HorizonMETARObservation})
	if !ok {
		t.Fatalf("expected reconstruction to succeed")
	}
	want := time.Date(2026, 7, 1, 0, 5, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReconstructOutsideWindowFails(t *testing.T) {
	now := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)
	p := Partial{
		Day: 31, Hour: 8, Minute: 0,
		Present: map[Field]bool{FieldDay: true, FieldHour: true, FieldMinute: true},
	}
	// This horizon only allows 1h past / 10m future; 6 hours back fails.
	_, ok := Reconstruct(p, Anchor{At: now, Horizon: Horizon{Past: time.Hour, Future: 10 * time.Minute}})
	if ok {
		t.Fatalf("expected reconstruction to fail outside window")
	}
}
