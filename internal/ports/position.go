package ports

import "github.com/busbeacon/beacon/internal/domain"

// PositionSource emits location samples as the vehicle moves.
type PositionSource interface {
	Start(out chan<- domain.LocationSample) error
	Stop() error
}
