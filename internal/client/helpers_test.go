package client

import (
	"context"
	"errors"
	"sync"

	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
)

var errSinkDown = errors.New("sink down")

// fakeSession is an in-memory ports.Session whose map writes can be
// forced to fail.
type fakeSession struct {
	mu        sync.Mutex
	values    map[string]domain.LocationSample
	observers map[uint64]func(string, domain.LocationSample)
	nextID    uint64
	failSets  bool
	closed    bool
	events    chan ports.SessionEvent
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		values:    make(map[string]domain.LocationSample),
		observers: make(map[uint64]func(string, domain.LocationSample)),
		events:    make(chan ports.SessionEvent, 8),
	}
}

func (s *fakeSession) Map(name string) ports.SessionMap  { return &fakeMap{s: s} }
func (s *fakeSession) Events() <-chan ports.SessionEvent { return s.events }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) get(key string) (domain.LocationSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

type fakeMap struct {
	s *fakeSession
}

func (m *fakeMap) Get(key string) (domain.LocationSample, bool) {
	return m.s.get(key)
}

func (m *fakeMap) Set(key string, sample domain.LocationSample) error {
	m.s.mu.Lock()
	if m.s.failSets {
		m.s.mu.Unlock()
		return errSinkDown
	}
	m.s.values[key] = sample
	fns := make([]func(string, domain.LocationSample), 0, len(m.s.observers))
	for _, fn := range m.s.observers {
		fns = append(fns, fn)
	}
	m.s.mu.Unlock()

	for _, fn := range fns {
		fn(key, sample)
	}
	return nil
}

func (m *fakeMap) Observe(fn func(key string, sample domain.LocationSample)) ports.ObserveHandle {
	m.s.mu.Lock()
	id := m.s.nextID
	m.s.nextID++
	m.s.observers[id] = fn
	m.s.mu.Unlock()
	return &fakeHandle{s: m.s, id: id}
}

type fakeHandle struct {
	s    *fakeSession
	id   uint64
	once sync.Once
}

func (h *fakeHandle) Cancel() {
	h.once.Do(func() {
		h.s.mu.Lock()
		delete(h.s.observers, h.id)
		h.s.mu.Unlock()
	})
}

// insertCall records one InsertLocation invocation.
type insertCall struct {
	busID    string
	lat, lon float64
}

// fakeStore is an in-memory ports.LocationStore with switchable
// failure modes.
type fakeStore struct {
	mu          sync.Mutex
	inserts     []insertCall
	statuses    map[string]domain.Status
	latest      map[string]*ports.LocationRow
	views       []domain.ChildBusView
	failInserts bool
	failReads   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses: make(map[string]domain.Status),
		latest:   make(map[string]*ports.LocationRow),
	}
}

func (s *fakeStore) InsertLocation(_ context.Context, busID string, lat, lon float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInserts {
		return errSinkDown
	}
	s.inserts = append(s.inserts, insertCall{busID: busID, lat: lat, lon: lon})
	return nil
}

func (s *fakeStore) UpdateBusStatus(_ context.Context, busID string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInserts {
		return errSinkDown
	}
	s.statuses[busID] = status
	return nil
}

func (s *fakeStore) LatestLocation(_ context.Context, busID string) (*ports.LocationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errSinkDown
	}
	row, ok := s.latest[busID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (s *fakeStore) LatestLocations(_ context.Context) ([]ports.LocationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.LocationRow, 0, len(s.latest))
	for _, row := range s.latest {
		out = append(out, *row)
	}
	return out, nil
}

func (s *fakeStore) ChildrenWithBuses(_ context.Context, _ string) ([]domain.ChildBusView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errSinkDown
	}
	return s.views, nil
}

func (s *fakeStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

func (s *fakeStore) setLatest(row ports.LocationRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := row
	s.latest[row.BusID] = &cp
}

// fakeDialer returns a canned session or error; it can also block until
// released to exercise cancellation mid-dial.
type fakeDialer struct {
	session *fakeSession
	err     error
	block   chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (ports.Session, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

// fakeFeed hands out subscriptions fed through a shared channel.
type fakeFeed struct {
	mu     sync.Mutex
	subs   []*fakeFeedSub
	failed bool
}

func (f *fakeFeed) Subscribe(context.Context) (ports.FeedSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return nil, errSinkDown
	}
	sub := &fakeFeedSub{events: make(chan ports.FeedEvent, 8)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) emit(ev ports.FeedEvent) {
	f.mu.Lock()
	subs := append([]*fakeFeedSub(nil), f.subs...)
	f.mu.Unlock()
	for _, sub := range subs {
		sub.emit(ev)
	}
}

type fakeFeedSub struct {
	events       chan ports.FeedEvent
	mu           sync.Mutex
	unsubscribed int
}

func (s *fakeFeedSub) Events() <-chan ports.FeedEvent { return s.events }

func (s *fakeFeedSub) Unsubscribe() {
	s.mu.Lock()
	s.unsubscribed++
	s.mu.Unlock()
}

func (s *fakeFeedSub) emit(ev ports.FeedEvent) {
	s.mu.Lock()
	closed := s.unsubscribed > 0
	s.mu.Unlock()
	if closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
