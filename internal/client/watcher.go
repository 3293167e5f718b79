package client

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
	"github.com/busbeacon/beacon/internal/wire"
)

const (
	defaultConnectTimeout = 10 * time.Second
	storeReadTimeout      = 5 * time.Second
)

// SubscriptionState is the lifecycle of one bus subscription.
type SubscriptionState int32

const (
	StateConnecting SubscriptionState = iota
	StateLive
	StateDegraded
	StateClosed
)

func (s SubscriptionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Watcher produces one merged update stream per bus, sourced from the
// replicated session when reachable and from the durable store's change
// feed otherwise. Delivery is at-least-once; callbacks must tolerate
// duplicates.
type Watcher struct {
	dialer ports.SessionDialer
	store  ports.LocationStore
	feed   ports.ChangeFeed
	obs    ports.Observability

	connectTimeout time.Duration
}

type WatcherOption func(*Watcher)

func WithWatcherObservability(obs ports.Observability) WatcherOption {
	return func(w *Watcher) {
		if obs != nil {
			w.obs = obs
		}
	}
}

func WithConnectTimeout(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.connectTimeout = d
		}
	}
}

func NewWatcher(dialer ports.SessionDialer, store ports.LocationStore, feed ports.ChangeFeed, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dialer:         dialer,
		store:          store,
		feed:           feed,
		obs:            nopObs{},
		connectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Subscribe starts observing one bus and returns immediately; the
// callback fires from a background goroutine once a source produces
// data. Session-establishment failures never reach the caller: they
// demote the subscription to degraded mode instead.
func (w *Watcher) Subscribe(busID string, callback func(domain.LocationSample)) *Subscription {
	sub := &Subscription{
		w:     w,
		busID: busID,
		done:  make(chan struct{}),
	}
	sub.state.Store(int32(StateConnecting))
	go sub.run(callback)
	return sub
}

// Subscription is the handle for one observed bus. Cancel is idempotent
// and releases the session observer, the change-feed channel, and the
// session itself.
type Subscription struct {
	w     *Watcher
	busID string
	state atomic.Int32

	mu       sync.Mutex
	session  ports.Session
	observer ports.ObserveHandle

	done       chan struct{}
	cancelOnce sync.Once
}

func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// Cancel detaches everything this subscription holds. Safe to call more
// than once; the callback never fires after the first call returns the
// teardown work.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.done)

		s.mu.Lock()
		observer := s.observer
		sess := s.session
		s.observer = nil
		s.session = nil
		s.mu.Unlock()

		if observer != nil {
			observer.Cancel()
		}
		if sess != nil {
			_ = sess.Close()
		}
	})
}

func (s *Subscription) cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Subscription) run(callback func(domain.LocationSample)) {
	w := s.w

	dialCtx, cancel := context.WithTimeout(context.Background(), w.connectTimeout)
	sess, err := w.dialer.Dial(dialCtx, s.busID)
	cancel()

	// A dial that settles after Cancel is discarded, not leaked.
	if s.cancelled() {
		if err == nil && sess != nil {
			_ = sess.Close()
		}
		return
	}

	if err != nil {
		w.obs.LogError("session_connect_failed", err,
			ports.Field{Key: "bus_id", Value: s.busID})
		w.obs.IncCounter("beacon_degraded_fallbacks_total", 1)
		s.state.CompareAndSwap(int32(StateConnecting), int32(StateDegraded))
		s.deliverFromStore(callback)
	} else {
		s.goLive(sess, callback)
	}

	s.runFeed(callback)
}

// goLive installs the map observer and makes the synthetic initial
// delivery so the caller always sees at least one update.
func (s *Subscription) goLive(sess ports.Session, callback func(domain.LocationSample)) {
	locations := sess.Map(wire.LocationsMap)

	s.mu.Lock()
	if s.cancelled() {
		s.mu.Unlock()
		_ = sess.Close()
		return
	}
	s.session = sess
	s.observer = locations.Observe(func(key string, sample domain.LocationSample) {
		if key != s.busID || s.cancelled() {
			return
		}
		callback(sample)
	})
	s.mu.Unlock()

	s.state.CompareAndSwap(int32(StateConnecting), int32(StateLive))

	if sample, ok := locations.Get(s.busID); ok {
		callback(sample)
	} else {
		s.deliverFromStore(callback)
	}

	go s.watchSessionEvents(sess)
}

// watchSessionEvents demotes the subscription when the session reports
// a transport failure. No automatic re-promotion is attempted; callers
// can inspect State and re-subscribe.
func (s *Subscription) watchSessionEvents(sess ports.Session) {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-sess.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case ports.SessionError, ports.SessionDisconnected:
				if s.cancelled() || s.State() != StateLive {
					continue
				}
				s.w.obs.LogError("session_lost", ev.Err,
					ports.Field{Key: "bus_id", Value: s.busID})
				s.w.obs.IncCounter("beacon_degraded_fallbacks_total", 1)
				s.state.CompareAndSwap(int32(StateLive), int32(StateDegraded))
			}
		}
	}
}

// runFeed keeps the durable-store change feed active for the life of
// the subscription, in live mode as well as degraded mode.
func (s *Subscription) runFeed(callback func(domain.LocationSample)) {
	feedCtx, cancelFeed := context.WithCancel(context.Background())
	defer cancelFeed()

	feedSub, err := s.w.feed.Subscribe(feedCtx)
	if err != nil {
		s.w.obs.LogError("feed_subscribe_failed", err,
			ports.Field{Key: "bus_id", Value: s.busID})
		<-s.done
		return
	}
	defer feedSub.Unsubscribe()

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-feedSub.Events():
			if !ok {
				return
			}
			if ev.BusID != "" && ev.BusID != s.busID {
				continue
			}
			s.handleFeedEvent(callback)
		}
	}
}

// handleFeedEvent re-reads the bus's authoritative state, mirrors it
// into the session so session-only viewers converge (cross-healing),
// and invokes the callback with whatever was read. A failed mirror
// write never suppresses the delivery.
func (s *Subscription) handleFeedEvent(callback func(domain.LocationSample)) {
	ctx, cancel := context.WithTimeout(context.Background(), storeReadTimeout)
	defer cancel()

	row, err := s.w.store.LatestLocation(ctx, s.busID)
	if err != nil {
		s.w.obs.LogError("store_read_failed", err,
			ports.Field{Key: "bus_id", Value: s.busID})
		return
	}
	if row == nil {
		return
	}
	sample := rowToSample(row)

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess != nil {
		locations := sess.Map(wire.LocationsMap)
		if existing, ok := locations.Get(s.busID); !ok || sample.Newer(existing) {
			if err := locations.Set(s.busID, sample); err != nil {
				s.w.obs.LogError("crossheal_failed", err,
					ports.Field{Key: "bus_id", Value: s.busID})
				s.w.obs.IncCounter("beacon_crossheal_failures_total", 1)
			} else {
				s.w.obs.IncCounter("beacon_crossheal_total", 1)
			}
		}
	}

	if !s.cancelled() {
		callback(sample)
	}
}

// deliverFromStore makes one delivery from durable data only, used for
// the initial callback when the session has nothing (or there is no
// session at all).
func (s *Subscription) deliverFromStore(callback func(domain.LocationSample)) {
	ctx, cancel := context.WithTimeout(context.Background(), storeReadTimeout)
	defer cancel()

	row, err := s.w.store.LatestLocation(ctx, s.busID)
	if err != nil {
		s.w.obs.LogError("store_read_failed", err,
			ports.Field{Key: "bus_id", Value: s.busID})
		return
	}
	if row == nil || s.cancelled() {
		return
	}
	callback(rowToSample(row))
}

// ChildrenBuses assembles the parent dashboard payload: each child with
// the current state of their assigned bus, Unknown when the bus has no
// location history yet.
func (w *Watcher) ChildrenBuses(ctx context.Context, parentID string) ([]domain.ChildBusInfo, error) {
	views, err := w.store.ChildrenWithBuses(ctx, parentID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChildBusInfo, 0, len(views))
	for _, v := range views {
		out = append(out, domain.ChildBusInfo{
			ChildName: v.ChildName,
			Bus:       busInfoFromView(v),
		})
	}
	return out, nil
}

func busInfoFromView(v domain.ChildBusView) domain.BusInfo {
	if v.LastUpdated.IsZero() {
		return domain.UnknownBus{BusID: v.BusID, Name: v.BusName}
	}
	driver := v.DriverName
	if driver == "" {
		driver = "Unknown Driver"
	}
	return domain.KnownBus{
		BusID:            v.BusID,
		Name:             v.BusName,
		RouteName:        v.RouteName,
		DriverName:       driver,
		Status:           domain.ParseStatus(v.Status),
		Latitude:         v.Latitude,
		Longitude:        v.Longitude,
		LastUpdated:      v.LastUpdated,
		EstimatedArrival: estimatedArrival(),
	}
}

// estimatedArrival is a placeholder until real route ETAs exist.
func estimatedArrival() string {
	eta := time.Now().Add(time.Duration(10+rand.Intn(30)) * time.Minute)
	return eta.Format("15:04")
}
