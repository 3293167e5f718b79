// Package wire defines the JSON messages exchanged between the relay
// and document-session clients. The protocol is a last-write-wins keyed
// map sync: clients send "set" operations, the relay rebroadcasts them
// to every other connection in the same room, and newly attached
// connections receive a full "snapshot" first.
package wire

import "encoding/json"

const (
	OpSet      = "set"
	OpSnapshot = "snapshot"
)

// Entry is one keyed value inside a named map, tagged with the
// timestamp used for last-write-wins conflict resolution.
type Entry struct {
	Map   string          `json:"map"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	TS    int64           `json:"ts"`
}

// Message is the envelope for every frame on a document connection.
// A "set" populates Map/Key/Value/TS; a "snapshot" populates Entries.
type Message struct {
	Op      string          `json:"op"`
	Map     string          `json:"map,omitempty"`
	Key     string          `json:"key,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	TS      int64           `json:"ts,omitempty"`
	Entries []Entry         `json:"entries,omitempty"`
}

// LocationsMap is the named map holding the latest LocationSample per
// bus. Other named maps may be added without protocol changes.
const LocationsMap = "locations"
