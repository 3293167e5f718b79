package relay

import (
	"encoding/json"
	"sync"

	"github.com/busbeacon/beacon/internal/wire"
)

// entry is one keyed value in a room map with its last-write timestamp.
type entry struct {
	value json.RawMessage
	ts    int64
}

// room is the server-side copy of one bus's replicated document: named
// maps of key -> value with last-write-wins conflict resolution, plus
// the set of connections attached to it.
type room struct {
	name string

	mu    sync.Mutex
	maps  map[string]map[string]entry
	conns map[*conn]struct{}
}

func newRoom(name string) *room {
	return &room{
		name:  name,
		maps:  make(map[string]map[string]entry),
		conns: make(map[*conn]struct{}),
	}
}

// attach adds a connection and sends it the current document snapshot.
func (r *room) attach(c *conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	c.enqueue(snap)
}

func (r *room) detach(c *conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

// apply merges a set operation into the document and fans it out to
// every other connection. Stale writes (older timestamp for the same
// key) are dropped without rebroadcast.
func (r *room) apply(from *conn, msg wire.Message) {
	if msg.Map == "" || msg.Key == "" {
		return
	}

	r.mu.Lock()
	m, ok := r.maps[msg.Map]
	if !ok {
		m = make(map[string]entry)
		r.maps[msg.Map] = m
	}
	if cur, ok := m[msg.Key]; ok && msg.TS < cur.ts {
		r.mu.Unlock()
		return
	}
	m[msg.Key] = entry{value: msg.Value, ts: msg.TS}

	targets := make([]*conn, 0, len(r.conns))
	for c := range r.conns {
		if c != from {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	for _, c := range targets {
		c.enqueue(msg)
	}
}

func (r *room) snapshotLocked() wire.Message {
	entries := make([]wire.Entry, 0)
	for mapName, m := range r.maps {
		for key, e := range m {
			entries = append(entries, wire.Entry{
				Map:   mapName,
				Key:   key,
				Value: e.value,
				TS:    e.ts,
			})
		}
	}
	return wire.Message{Op: wire.OpSnapshot, Entries: entries}
}

// roomSet routes room names to room instances, creating them lazily.
// Rooms are retained after the last connection detaches so a bus can
// reattach and find its document intact; only registry bookkeeping is
// cleaned up on close.
type roomSet struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func newRoomSet() *roomSet {
	return &roomSet{rooms: make(map[string]*room)}
}

func (s *roomSet) get(name string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		r = newRoom(name)
		s.rooms[name] = r
	}
	return r
}
