package domain

import "time"

// BusInfo is the view-facing variant for a child's bus: either a bus we
// have live data for, or one with no recorded location yet. Callers
// switch on the concrete type rather than probing fields.
type BusInfo interface {
	busInfo()
}

// KnownBus carries the last known state of a tracked bus.
type KnownBus struct {
	BusID            string
	Name             string
	RouteName        string
	DriverName       string
	Status           Status
	Latitude         float64
	Longitude        float64
	LastUpdated      time.Time
	EstimatedArrival string
}

// UnknownBus marks a bus assignment with no location history.
type UnknownBus struct {
	BusID string
	Name  string
}

func (KnownBus) busInfo()   {}
func (UnknownBus) busInfo() {}

// ChildBusView is one row of the parent_child_buses projection joining
// a parent's child to its assigned bus and that bus's latest location.
type ChildBusView struct {
	ParentID    string
	ChildID     string
	ChildName   string
	BusID       string
	BusName     string
	RouteName   string
	Status      string
	Latitude    float64
	Longitude   float64
	LastUpdated time.Time
	DriverName  string
}

// ChildBusInfo pairs a child with the state of their assigned bus.
type ChildBusInfo struct {
	ChildName string
	Bus       BusInfo
}
