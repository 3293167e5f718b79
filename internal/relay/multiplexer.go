package relay

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/busbeacon/beacon/internal/ports"
)

// UnroutedRoom receives connections whose request path carries no
// recognizable bus ID. They share one document and are excluded from
// the per-bus registry, matching how untagged connections were handled
// upstream. Buses therefore stay isolated from malformed clients.
const UnroutedRoom = "unrouted"

// Multiplexer accepts inbound websocket connections, extracts the bus
// ID from the request path, and binds each connection to the matching
// replicated-document room.
type Multiplexer struct {
	registry *Registry
	rooms    *roomSet
	prefix   string
	obs      ports.Observability
	upgrader websocket.Upgrader
}

func NewMultiplexer(registry *Registry, prefix string, obs ports.Observability) *Multiplexer {
	return &Multiplexer{
		registry: registry,
		rooms:    newRoomSet(),
		prefix:   prefix,
		obs:      obs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleDoc upgrades the request and serves the connection until the
// peer disconnects. The registry entry is created before the room bind
// and removed on close regardless of how the bind went.
func (m *Multiplexer) HandleDoc(w http.ResponseWriter, r *http.Request) {
	busID := mux.Vars(r)["busID"]
	if busID == "" {
		// Fall back to the raw path for non-mux mounts.
		parts := strings.Split(strings.TrimRight(r.URL.Path, "/"), "/")
		busID = parts[len(parts)-1]
	}

	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.obs.LogError("ws_upgrade_failed", err)
		return
	}

	connID := ulid.Make().String()
	roomName := busID
	tracked := m.validBusID(busID)
	if tracked {
		m.registry.Add(busID, connID)
		m.obs.LogInfo("connection_opened",
			ports.Field{Key: "bus_id", Value: busID},
			ports.Field{Key: "conn_id", Value: connID})
	} else {
		roomName = UnroutedRoom
		m.obs.LogInfo("connection_unrouted",
			ports.Field{Key: "path", Value: r.URL.Path},
			ports.Field{Key: "conn_id", Value: connID})
	}

	c := newConn(connID, ws, m.obs)
	room := m.rooms.get(roomName)
	room.attach(c)

	go c.writePump()
	c.readPump(room)

	room.detach(c)
	if tracked {
		m.registry.Remove(busID, connID)
		m.obs.LogInfo("connection_closed",
			ports.Field{Key: "bus_id", Value: busID},
			ports.Field{Key: "conn_id", Value: connID})
	}
}

func (m *Multiplexer) validBusID(busID string) bool {
	if busID == "" || busID == UnroutedRoom {
		return false
	}
	if m.prefix == "" {
		return true
	}
	return strings.HasPrefix(busID, m.prefix)
}
