package session

import "github.com/mopmop-game/mopmop-server/internal/protocol"

// Msg is one event on the session's single-threaded inbox. Connections, the
// tick timer and shutdown all serialize through it; no state is touched from
// any other goroutine.
type Msg interface{ isSessionMsg() }

// Join registers a connection and immediately receives the current snapshot.
type Join struct {
	ClientID string
	Outbox   chan protocol.ServerMessage
}

func (Join) isSessionMsg() {}

// Leave is sent when a connection's transport closes.
type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

// FromClient carries one decoded inbound envelope.
type FromClient struct {
	ClientID string
	Envelope protocol.Envelope
}

func (FromClient) isSessionMsg() {}

// GetState is the synchronous query surface used by the HTTP API (and tests).
type GetState struct{ Reply chan View }

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// tick is an internal timer firing. Fires from a cancelled timer carry a stale
// generation and are dropped.
type tick struct{ gen uint64 }

func (tick) isSessionMsg() {}

// View is a consistent read of the session for the query surface.
type View struct {
	NumClients int
	State      protocol.GameState
}
