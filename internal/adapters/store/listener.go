package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/busbeacon/beacon/internal/ports"
)

const (
	minReconnectInterval = 2 * time.Second
	maxReconnectInterval = time.Minute
	feedBuffer           = 16
)

// ListenerFeed delivers bus_locations row changes via Postgres
// LISTEN/NOTIFY. A trigger on the table is expected to NOTIFY the
// configured channel with a payload like
// {"op":"INSERT","bus_id":"BUS001"}.
type ListenerFeed struct {
	dsn     string
	channel string
	obs     ports.Observability
}

func NewListenerFeed(dsn, channel string, obs ports.Observability) *ListenerFeed {
	return &ListenerFeed{dsn: dsn, channel: channel, obs: obs}
}

func (f *ListenerFeed) Subscribe(ctx context.Context) (ports.FeedSubscription, error) {
	listener := pq.NewListener(f.dsn, minReconnectInterval, maxReconnectInterval,
		func(_ pq.ListenerEventType, err error) {
			if err != nil {
				f.obs.LogError("feed_listener_event", err)
			}
		})

	if err := listener.Listen(f.channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", f.channel, err)
	}

	sub := &feedSub{
		listener: listener,
		events:   make(chan ports.FeedEvent, feedBuffer),
		done:     make(chan struct{}),
		obs:      f.obs,
	}
	go sub.loop(ctx)
	return sub, nil
}

type feedSub struct {
	listener *pq.Listener
	events   chan ports.FeedEvent
	done     chan struct{}
	once     sync.Once
	obs      ports.Observability
}

func (s *feedSub) Events() <-chan ports.FeedEvent { return s.events }

// Unsubscribe tears down the listener. Idempotent.
func (s *feedSub) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		_ = s.listener.Close()
	})
}

type feedPayload struct {
	Op    string `json:"op"`
	BusID string `json:"bus_id"`
}

func (s *feedSub) loop(ctx context.Context) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.Unsubscribe()
			return
		case n, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Reconnect marker from pq; no payload to deliver.
				continue
			}
			ev, err := parsePayload(n.Extra)
			if err != nil {
				s.obs.LogError("feed_payload_decode_failed", err)
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

func parsePayload(extra string) (ports.FeedEvent, error) {
	var p feedPayload
	if err := json.Unmarshal([]byte(extra), &p); err != nil {
		return ports.FeedEvent{}, err
	}
	kind := ports.FeedInsert
	if p.Op == "UPDATE" {
		kind = ports.FeedUpdate
	}
	return ports.FeedEvent{Kind: kind, BusID: p.BusID}, nil
}

var _ ports.ChangeFeed = (*ListenerFeed)(nil)
