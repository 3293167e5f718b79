package relay

import (
	"sort"
	"sync"
)

// BusConnCount is one row of a registry snapshot.
type BusConnCount struct {
	BusID string
	Count int
}

// Registry tracks live connections grouped by bus. Pure bookkeeping;
// it holds no document state and never owns the connections.
type Registry struct {
	mu    sync.Mutex
	buses map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{buses: make(map[string]map[string]struct{})}
}

func (r *Registry) Add(busID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.buses[busID]
	if !ok {
		set = make(map[string]struct{})
		r.buses[busID] = set
	}
	set[connID] = struct{}{}
}

// Remove drops one connection and deletes the bus entry when its set
// becomes empty. Removing an unknown connection is a no-op.
func (r *Registry) Remove(busID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.buses[busID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.buses, busID)
	}
}

// Count returns the number of connections attached for one bus.
func (r *Registry) Count(busID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buses[busID])
}

// Total returns the number of tracked connections across all buses.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, set := range r.buses {
		total += len(set)
	}
	return total
}

// Snapshot returns per-bus connection counts ordered by bus ID.
func (r *Registry) Snapshot() []BusConnCount {
	r.mu.Lock()
	out := make([]BusConnCount, 0, len(r.buses))
	for busID, set := range r.buses {
		out = append(out, BusConnCount{BusID: busID, Count: len(set)})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].BusID < out[j].BusID })
	return out
}
