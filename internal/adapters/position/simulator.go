// Package position provides PositionSource implementations. The
// simulator drives the tracker in tests and demos where no device GPS
// is available.
package position

import (
	"errors"
	"sync"
	"time"

	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
)

// Waypoint is one point on a simulated route.
type Waypoint struct {
	Latitude  float64
	Longitude float64
}

// Simulator emits samples along a fixed route at a fixed interval,
// interpolating linearly between waypoints and looping at the end.
type Simulator struct {
	busID    string
	route    []Waypoint
	interval time.Duration
	steps    int

	mu      sync.Mutex
	cancel  chan struct{}
	started bool
}

func NewSimulator(busID string, route []Waypoint, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Simulator{
		busID:    busID,
		route:    route,
		interval: interval,
		steps:    10,
	}
}

func (s *Simulator) Start(out chan<- domain.LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("simulator already started")
	}
	if len(s.route) == 0 {
		return errors.New("simulator route is empty")
	}
	s.started = true
	s.cancel = make(chan struct{})
	go s.loop(out, s.cancel)
	return nil
}

func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	close(s.cancel)
	return nil
}

func (s *Simulator) loop(out chan<- domain.LocationSample, cancel <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	leg, step := 0, 0
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			from := s.route[leg%len(s.route)]
			to := s.route[(leg+1)%len(s.route)]
			frac := float64(step) / float64(s.steps)

			sample := domain.LocationSample{
				BusID:     s.busID,
				Latitude:  from.Latitude + (to.Latitude-from.Latitude)*frac,
				Longitude: from.Longitude + (to.Longitude-from.Longitude)*frac,
				Status:    domain.StatusActive,
				Timestamp: domain.NowMillis(),
			}

			select {
			case out <- sample:
			case <-cancel:
				return
			}

			step++
			if step > s.steps {
				step = 0
				leg++
			}
		}
	}
}

var _ ports.PositionSource = (*Simulator)(nil)
