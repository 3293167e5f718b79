// Package beacon is the public facade for embedding the Bus Beacon
// sync clients and relay in other Go services, mirroring the internal
// packages without exposing them directly.
package beacon

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/busbeacon/beacon/internal/adapters/observability"
	"github.com/busbeacon/beacon/internal/adapters/position"
	"github.com/busbeacon/beacon/internal/adapters/session"
	"github.com/busbeacon/beacon/internal/adapters/store"
	"github.com/busbeacon/beacon/internal/app/config"
	"github.com/busbeacon/beacon/internal/client"
	"github.com/busbeacon/beacon/internal/domain"
	"github.com/busbeacon/beacon/internal/ports"
	"github.com/busbeacon/beacon/internal/relay"
)

// Domain and port re-exports.
type (
	Config         = config.Config
	RelayConfig    = config.RelayConfig
	ClientConfig   = config.ClientConfig
	PostgresConfig = config.PostgresConfig

	LocationSample = domain.LocationSample
	Status         = domain.Status
	BusInfo        = domain.BusInfo
	KnownBus       = domain.KnownBus
	UnknownBus     = domain.UnknownBus
	ChildBusInfo   = domain.ChildBusInfo

	Session        = ports.Session
	SessionDialer  = ports.SessionDialer
	LocationStore  = ports.LocationStore
	ChangeFeed     = ports.ChangeFeed
	Observability  = ports.Observability
	PositionSource = ports.PositionSource

	Tracker           = client.Tracker
	TrackerOption     = client.TrackerOption
	Watcher           = client.Watcher
	WatcherOption     = client.WatcherOption
	Subscription      = client.Subscription
	SubscriptionState = client.SubscriptionState
	PublishResult     = client.PublishResult

	RelayServer = relay.Server
	Waypoint    = position.Waypoint
)

const (
	StatusActive   = domain.StatusActive
	StatusInactive = domain.StatusInactive
	StatusUnknown  = domain.StatusUnknown
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewRelayServer builds the relay with Prometheus-backed observability.
func NewRelayServer(cfg RelayConfig) *RelayServer {
	return relay.NewServer(cfg, observability.NewPromObs(nil))
}

// NewDialer builds the websocket session dialer for a relay base URL,
// e.g. "ws://relay.example:8080".
func NewDialer(relayURL string) SessionDialer {
	return session.NewDialer(relayURL, observability.NewLogObs())
}

// OpenStore opens Postgres and wraps it in the location store adapter.
func OpenStore(connString string) (LocationStore, *sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresStore(db), db, nil
}

// NewChangeFeed builds the LISTEN/NOTIFY change feed for the given DSN.
func NewChangeFeed(connString, channel string) ChangeFeed {
	return store.NewListenerFeed(connString, channel, observability.NewLogObs())
}

// NewTracker builds the driver-side dual-sink publisher.
func NewTracker(st LocationStore, opts ...TrackerOption) *Tracker {
	opts = append([]TrackerOption{
		client.WithTrackerObservability(observability.NewLogObs()),
	}, opts...)
	return client.NewTracker(st, opts...)
}

// NewWatcher builds the parent-side reconciling subscriber.
func NewWatcher(dialer SessionDialer, st LocationStore, feed ChangeFeed, opts ...WatcherOption) *Watcher {
	opts = append([]WatcherOption{
		client.WithWatcherObservability(observability.NewLogObs()),
	}, opts...)
	return client.NewWatcher(dialer, st, feed, opts...)
}

// NewSimulator builds a looping route position source for demos/tests.
func NewSimulator(busID string, route []Waypoint, interval time.Duration) PositionSource {
	return position.NewSimulator(busID, route, interval)
}

// Option re-exports.
var (
	WithTrackerSession       = client.WithTrackerSession
	WithTrackerObservability = client.WithTrackerObservability
	WithWatcherObservability = client.WithWatcherObservability
	WithConnectTimeout       = client.WithConnectTimeout
)
