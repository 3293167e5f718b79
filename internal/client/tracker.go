// Package client holds the two sides of the dual-path sync: the driver
// tracker publishing to both sinks, and the parent watcher reconciling
// both sources into one callback stream.
package client

import (
	"context"
	"sync"

	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
	"github.com/busbeacon/beacon/internal/wire"
)

// PublishResult reports each sink's outcome. Both failures are already
// logged and counted when the call returns; callers are free to ignore
// the result entirely.
type PublishResult struct {
	SessionErr error
	StoreErr   error
}

// Tracker publishes every location sample to the replicated session and
// the durable store. The sinks fail independently: a store outage never
// blocks the session write and vice versa.
type Tracker struct {
	store ports.LocationStore
	obs   ports.Observability

	mu      sync.Mutex
	session ports.Session
	last    map[string]domain.LocationSample
	active  bool
}

type TrackerOption func(*Tracker)

// WithTrackerSession attaches the replicated session at construction.
// Without one the tracker runs store-only, which is a supported mode,
// not an error.
func WithTrackerSession(s ports.Session) TrackerOption {
	return func(t *Tracker) { t.session = s }
}

func WithTrackerObservability(obs ports.Observability) TrackerOption {
	return func(t *Tracker) {
		if obs != nil {
			t.obs = obs
		}
	}
}

func NewTracker(store ports.LocationStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store: store,
		obs:   nopObs{},
		last:  make(map[string]domain.LocationSample),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// AttachSession swaps in a session after construction, e.g. once a
// late connection attempt finally succeeds.
func (t *Tracker) AttachSession(s ports.Session) {
	t.mu.Lock()
	t.session = s
	t.mu.Unlock()
}

// Publish dual-writes one sample. Missing timestamp and status are
// filled in. Neither sink error propagates beyond the result value.
func (t *Tracker) Publish(ctx context.Context, sample domain.LocationSample) PublishResult {
	if sample.Timestamp == 0 {
		sample.Timestamp = domain.NowMillis()
	}
	if sample.Status == "" {
		sample.Status = domain.StatusActive
	}

	t.mu.Lock()
	t.last[sample.BusID] = sample
	sess := t.session
	t.mu.Unlock()

	var res PublishResult

	if sess != nil {
		if err := sess.Map(wire.LocationsMap).Set(sample.BusID, sample); err != nil {
			t.obs.LogError("session_publish_failed", err,
				ports.Field{Key: "bus_id", Value: sample.BusID})
			t.obs.IncCounter("beacon_session_publish_failures_total", 1)
			res.SessionErr = err
		}
	}

	if err := t.store.InsertLocation(ctx, sample.BusID, sample.Latitude, sample.Longitude); err != nil {
		t.obs.LogError("store_publish_failed", err,
			ports.Field{Key: "bus_id", Value: sample.BusID})
		t.obs.IncCounter("beacon_store_publish_failures_total", 1)
		res.StoreErr = err
	}

	t.obs.IncCounter("beacon_publishes_total", 1)
	return res
}

// SetStatus dual-writes a bare status change, carrying forward the last
// known coordinates (in-memory first, then session replica, then the
// durable store).
func (t *Tracker) SetStatus(ctx context.Context, busID string, status domain.Status) PublishResult {
	sample := domain.LocationSample{
		BusID:     busID,
		Status:    status,
		Timestamp: domain.NowMillis(),
	}

	if prev, ok := t.lastKnown(ctx, busID); ok {
		sample.Latitude = prev.Latitude
		sample.Longitude = prev.Longitude
	}

	t.mu.Lock()
	t.last[busID] = sample
	sess := t.session
	t.mu.Unlock()

	var res PublishResult

	if sess != nil {
		if err := sess.Map(wire.LocationsMap).Set(busID, sample); err != nil {
			t.obs.LogError("session_status_failed", err,
				ports.Field{Key: "bus_id", Value: busID})
			t.obs.IncCounter("beacon_session_publish_failures_total", 1)
			res.SessionErr = err
		}
	}

	if err := t.store.UpdateBusStatus(ctx, busID, status); err != nil {
		t.obs.LogError("store_status_failed", err,
			ports.Field{Key: "bus_id", Value: busID})
		t.obs.IncCounter("beacon_store_publish_failures_total", 1)
		res.StoreErr = err
	}

	return res
}

// ClockOut marks the bus inactive without new coordinates, the driver's
// end-of-shift transition.
func (t *Tracker) ClockOut(ctx context.Context, busID string) PublishResult {
	defer t.setActive(false)
	return t.SetStatus(ctx, busID, domain.StatusInactive)
}

// Run drains a position source and publishes each sample in arrival
// order until ctx is cancelled or the source closes its channel.
func (t *Tracker) Run(ctx context.Context, src ports.PositionSource) error {
	ch := make(chan domain.LocationSample, 64)
	if err := src.Start(ch); err != nil {
		return err
	}
	t.setActive(true)
	defer func() {
		t.setActive(false)
		_ = src.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-ch:
			if !ok {
				return nil
			}
			t.Publish(ctx, sample)
		}
	}
}

// TrackingActive reports whether Run is currently consuming a source.
// UI surfaces this instead of receiving errors from publish paths.
func (t *Tracker) TrackingActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Tracker) setActive(v bool) {
	t.mu.Lock()
	t.active = v
	t.mu.Unlock()
}

func (t *Tracker) lastKnown(ctx context.Context, busID string) (domain.LocationSample, bool) {
	t.mu.Lock()
	prev, ok := t.last[busID]
	sess := t.session
	t.mu.Unlock()
	if ok {
		return prev, true
	}

	if sess != nil {
		if s, ok := sess.Map(wire.LocationsMap).Get(busID); ok {
			return s, true
		}
	}

	row, err := t.store.LatestLocation(ctx, busID)
	if err != nil {
		t.obs.LogError("last_known_lookup_failed", err,
			ports.Field{Key: "bus_id", Value: busID})
		return domain.LocationSample{}, false
	}
	if row == nil {
		return domain.LocationSample{}, false
	}
	return rowToSample(row), true
}

func rowToSample(row *ports.LocationRow) domain.LocationSample {
	return domain.LocationSample{
		BusID:     row.BusID,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
		Status:    row.Status,
		Timestamp: row.RecordedAt.UnixMilli(),
	}
}

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) SetGauge(string, float64)               {}
