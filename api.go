package beacon

import (
	base "github.com/busbeacon/beacon/pkg/beacon"
)

// Type aliases so consumers can import github.com/busbeacon/beacon directly.
type (
	Config         = base.Config
	RelayConfig    = base.RelayConfig
	ClientConfig   = base.ClientConfig
	PostgresConfig = base.PostgresConfig

	LocationSample = base.LocationSample
	Status         = base.Status
	BusInfo        = base.BusInfo
	KnownBus       = base.KnownBus
	UnknownBus     = base.UnknownBus
	ChildBusInfo   = base.ChildBusInfo

	Session        = base.Session
	SessionDialer  = base.SessionDialer
	LocationStore  = base.LocationStore
	ChangeFeed     = base.ChangeFeed
	Observability  = base.Observability
	PositionSource = base.PositionSource

	Tracker           = base.Tracker
	TrackerOption     = base.TrackerOption
	Watcher           = base.Watcher
	WatcherOption     = base.WatcherOption
	Subscription      = base.Subscription
	SubscriptionState = base.SubscriptionState
	PublishResult     = base.PublishResult

	RelayServer = base.RelayServer
	Waypoint    = base.Waypoint
)

const (
	StatusActive   = base.StatusActive
	StatusInactive = base.StatusInactive
	StatusUnknown  = base.StatusUnknown
)

// Constructor re-exports.
var (
	LoadConfig     = base.LoadConfig
	NewRelayServer = base.NewRelayServer
	NewDialer      = base.NewDialer
	OpenStore      = base.OpenStore
	NewChangeFeed  = base.NewChangeFeed
	NewTracker     = base.NewTracker
	NewWatcher     = base.NewWatcher
	NewSimulator   = base.NewSimulator

	WithTrackerSession       = base.WithTrackerSession
	WithTrackerObservability = base.WithTrackerObservability
	WithWatcherObservability = base.WithWatcherObservability
	WithConnectTimeout       = base.WithConnectTimeout
)
