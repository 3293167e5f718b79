package position

import (
	"testing"
	"time"

	"github.com/busbeacon/beacon/internal/domain"
)

func TestSimulatorEmitsAlongRoute(t *testing.T) {
	sim := NewSimulator("BUS001", []Waypoint{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 1},
	}, time.Millisecond)

	out := make(chan domain.LocationSample, 8)
	if err := sim.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sim.Stop()

	var first, second domain.LocationSample
	select {
	case first = <-out:
	case <-time.After(time.Second):
		t.Fatal("no sample emitted")
	}
	select {
	case second = <-out:
	case <-time.After(time.Second):
		t.Fatal("only one sample emitted")
	}

	if first.BusID != "BUS001" || first.Status != domain.StatusActive {
		t.Fatalf("unexpected sample: %+v", first)
	}
	if second.Latitude < first.Latitude {
		t.Fatalf("samples must advance along the route: %+v then %+v", first, second)
	}
}

func TestSimulatorStartTwiceFails(t *testing.T) {
	sim := NewSimulator("BUS001", []Waypoint{{Latitude: 0, Longitude: 0}}, time.Millisecond)
	out := make(chan domain.LocationSample, 1)
	if err := sim.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sim.Stop()

	if err := sim.Start(out); err == nil {
		t.Fatal("second start must fail")
	}
}

func TestSimulatorEmptyRouteFails(t *testing.T) {
	sim := NewSimulator("BUS001", nil, time.Millisecond)
	if err := sim.Start(make(chan domain.LocationSample)); err == nil {
		t.Fatal("empty route must fail")
	}
}

func TestSimulatorStopIsIdempotent(t *testing.T) {
	sim := NewSimulator("BUS001", []Waypoint{{Latitude: 0, Longitude: 0}}, time.Millisecond)
	if err := sim.Stop(); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	out := make(chan domain.LocationSample, 1)
	if err := sim.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sim.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := sim.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
