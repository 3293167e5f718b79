// Package session implements the client side of the relay's document
// protocol: a websocket-backed replicated map with observers, a status
// event channel, and idempotent teardown.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/busbeacon/beacon/internal/ports"
)

// Dialer connects document sessions against one relay endpoint.
type Dialer struct {
	baseURL string
	obs     ports.Observability
}

// NewDialer takes the relay base URL, e.g. "ws://relay.example:8080".
func NewDialer(baseURL string, obs ports.Observability) *Dialer {
	return &Dialer{baseURL: strings.TrimRight(baseURL, "/"), obs: obs}
}

// Dial opens the session for one bus. The attempt is bounded by ctx;
// on success the returned session is already receiving updates.
func (d *Dialer) Dial(ctx context.Context, busID string) (ports.Session, error) {
	url := fmt.Sprintf("%s/doc/%s", d.baseURL, busID)
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	s := newDocSession(busID, ws, d.obs)
	go s.readLoop()
	go s.writeLoop()
	s.emit(ports.SessionEvent{Kind: ports.SessionConnected})
	return s, nil
}

var _ ports.SessionDialer = (*Dialer)(nil)
