package domain

import "testing"

func TestParseStatus(t *testing.T) {
	if got := ParseStatus("active"); got != StatusActive {
		t.Fatalf("expected active, got %s", got)
	}
	if got := ParseStatus("inactive"); got != StatusInactive {
		t.Fatalf("expected inactive, got %s", got)
	}
	if got := ParseStatus("garbage"); got != StatusUnknown {
		t.Fatalf("expected unknown for garbage input, got %s", got)
	}
	if got := ParseStatus(""); got != StatusUnknown {
		t.Fatalf("expected unknown for empty input, got %s", got)
	}
}

func TestNewer(t *testing.T) {
	older := LocationSample{BusID: "BUS001", Timestamp: 100}
	newer := LocationSample{BusID: "BUS001", Timestamp: 200}

	if !newer.Newer(older) {
		t.Fatal("later timestamp must be newer")
	}
	if older.Newer(newer) {
		t.Fatal("earlier timestamp must not be newer")
	}
	if older.Newer(older) {
		t.Fatal("equal timestamps are not newer")
	}
}
