package session

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
	"github.com/busbeacon/beacon/internal/wire"
)

const (
	eventBuffer = 8
	sendBuffer  = 32
)

type mapEntry struct {
	sample domain.LocationSample
	ts     int64
}

type observer struct {
	mapName string
	fn      func(key string, sample domain.LocationSample)
}

// DocSession is the local replica of one bus's document. Inbound frames
// update the replica and fire observers; local sets update the replica
// and are pushed to the relay.
type DocSession struct {
	busID string
	ws    *websocket.Conn
	obs   ports.Observability

	mu        sync.Mutex
	maps      map[string]map[string]mapEntry
	observers map[uint64]observer
	nextObsID uint64
	closed    bool

	events    chan ports.SessionEvent
	send      chan wire.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newDocSession(busID string, ws *websocket.Conn, obs ports.Observability) *DocSession {
	return &DocSession{
		busID:     busID,
		ws:        ws,
		obs:       obs,
		maps:      make(map[string]map[string]mapEntry),
		observers: make(map[uint64]observer),
		events:    make(chan ports.SessionEvent, eventBuffer),
		send:      make(chan wire.Message, sendBuffer),
		done:      make(chan struct{}),
	}
}

func (s *DocSession) Map(name string) ports.SessionMap {
	return &docMap{session: s, name: name}
}

func (s *DocSession) Events() <-chan ports.SessionEvent {
	return s.events
}

// Close releases the socket and stops both pumps. Safe to call more
// than once and from any goroutine.
func (s *DocSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		_ = s.ws.Close()
		s.emit(ports.SessionEvent{Kind: ports.SessionDisconnected})
	})
	return nil
}

func (s *DocSession) readLoop() {
	for {
		var msg wire.Message
		if err := s.ws.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				s.emit(ports.SessionEvent{Kind: ports.SessionError, Err: err})
			}
			_ = s.Close()
			return
		}

		switch msg.Op {
		case wire.OpSnapshot:
			for _, e := range msg.Entries {
				s.applyRemote(e.Map, e.Key, e.Value, e.TS)
			}
		case wire.OpSet:
			s.applyRemote(msg.Map, msg.Key, msg.Value, msg.TS)
		}
	}
}

func (s *DocSession) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			if err := s.ws.WriteJSON(msg); err != nil {
				s.emit(ports.SessionEvent{Kind: ports.SessionError, Err: err})
				_ = s.Close()
				return
			}
		}
	}
}

// applyRemote merges an inbound entry, dropping stale timestamps, and
// fires observers when the replica changed.
func (s *DocSession) applyRemote(mapName, key string, value json.RawMessage, ts int64) {
	if mapName == "" || key == "" {
		return
	}

	var sample domain.LocationSample
	if err := json.Unmarshal(value, &sample); err != nil {
		// Unknown payload shape for a future keyed field; skip it.
		s.obs.LogError("session_value_decode_failed", err,
			ports.Field{Key: "map", Value: mapName},
			ports.Field{Key: "key", Value: key})
		return
	}

	if !s.store(mapName, key, sample, ts) {
		return
	}
	s.notify(mapName, key, sample)
}

// store writes the entry unless a newer one is already present.
func (s *DocSession) store(mapName, key string, sample domain.LocationSample, ts int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[mapName]
	if !ok {
		m = make(map[string]mapEntry)
		s.maps[mapName] = m
	}
	if cur, ok := m[key]; ok && ts < cur.ts {
		return false
	}
	m[key] = mapEntry{sample: sample, ts: ts}
	return true
}

func (s *DocSession) notify(mapName, key string, sample domain.LocationSample) {
	s.mu.Lock()
	fns := make([]func(string, domain.LocationSample), 0, len(s.observers))
	for _, o := range s.observers {
		if o.mapName == mapName {
			fns = append(fns, o.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(key, sample)
	}
}

func (s *DocSession) emit(ev ports.SessionEvent) {
	select {
	case s.events <- ev:
	default:
		// Nobody is draining the status channel; don't stall the pumps.
	}
}

// docMap gives map-scoped access to the session replica.
type docMap struct {
	session *DocSession
	name    string
}

func (m *docMap) Get(key string) (domain.LocationSample, bool) {
	s := m.session
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.maps[m.name][key]
	if !ok {
		return domain.LocationSample{}, false
	}
	return e.sample, true
}

// Set applies the sample locally and pushes it to the relay. The
// sample's own timestamp is the last-write-wins tag.
func (m *docMap) Set(key string, sample domain.LocationSample) error {
	s := m.session

	ts := sample.Timestamp
	if ts == 0 {
		ts = domain.NowMillis()
		sample.Timestamp = ts
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ports.ErrSessionClosed
	}
	s.mu.Unlock()

	value, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	if s.store(m.name, key, sample, ts) {
		s.notify(m.name, key, sample)
	}

	msg := wire.Message{Op: wire.OpSet, Map: m.name, Key: key, Value: value, TS: ts}
	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return ports.ErrSessionClosed
	}
}

func (m *docMap) Observe(fn func(key string, sample domain.LocationSample)) ports.ObserveHandle {
	s := m.session
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = observer{mapName: m.name, fn: fn}
	s.mu.Unlock()

	return &observeHandle{session: s, id: id}
}

type observeHandle struct {
	session *DocSession
	id      uint64
	once    sync.Once
}

func (h *observeHandle) Cancel() {
	h.once.Do(func() {
		h.session.mu.Lock()
		delete(h.session.observers, h.id)
		h.session.mu.Unlock()
	})
}

var _ ports.Session = (*DocSession)(nil)
var _ ports.SessionMap = (*docMap)(nil)
