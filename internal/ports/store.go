package ports

import (
	"context"
	"time"

	"github.com/busbeacon/beacon/internal/domain"
)

// LocationRow is one persisted bus location joined with the bus's
// current status.
type LocationRow struct {
	BusID      string
	Latitude   float64
	Longitude  float64
	Status     domain.Status
	RecordedAt time.Time
}

// LocationStore is the durable relational store holding authoritative
// location and status history.
type LocationStore interface {
	InsertLocation(ctx context.Context, busID string, lat, lon float64) error
	UpdateBusStatus(ctx context.Context, busID string, status domain.Status) error

	// LatestLocation returns nil without error when the bus has no
	// recorded location.
	LatestLocation(ctx context.Context, busID string) (*LocationRow, error)
	LatestLocations(ctx context.Context) ([]LocationRow, error)
	ChildrenWithBuses(ctx context.Context, parentID string) ([]domain.ChildBusView, error)
}

// FeedEventKind enumerates change-feed event types.
type FeedEventKind int

const (
	FeedInsert FeedEventKind = iota
	FeedUpdate
)

// FeedEvent signals a row change in the durable store. BusID may be
// empty when the notification payload does not identify a bus.
type FeedEvent struct {
	Kind  FeedEventKind
	BusID string
}

// FeedSubscription is an active change-feed channel. Unsubscribe is
// idempotent.
type FeedSubscription interface {
	Events() <-chan FeedEvent
	Unsubscribe()
}

// ChangeFeed exposes row-change notifications from the durable store.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (FeedSubscription, error)
}
