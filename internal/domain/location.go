package domain

import "time"

// Status describes whether a bus is actively broadcasting its position.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusUnknown  Status = "unknown"
)

// ParseStatus maps arbitrary input to a Status, falling back to
// StatusUnknown for anything unrecognized.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusActive, StatusInactive:
		return Status(s)
	default:
		return StatusUnknown
	}
}

// LocationSample is one position fix or status change reported by a
// driver client. Samples are immutable; a later sample supersedes an
// earlier one, it never mutates it.
type LocationSample struct {
	BusID     string  `json:"bus_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    Status  `json:"status"`
	Timestamp int64   `json:"ts"` // milliseconds since epoch
}

// Newer reports whether s supersedes other. Consumers use this to drop
// stale callbacks when the two delivery paths race.
func (s LocationSample) Newer(other LocationSample) bool {
	return s.Timestamp > other.Timestamp
}

// NowMillis returns the current wall clock in milliseconds since epoch,
// the timestamp resolution used on the wire and in storage.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
