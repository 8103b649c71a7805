// internal/transport/transport.go
//
// The networking boundary consumed by the session.
// A Network can listen under a room identifier or connect to one.
// Listeners and connections report everything that happens to them as
// Events on a caller-supplied channel, so the session can process them
// one at a time on its own goroutine.
//
// Implementations:
//   - memnet: in-process, used by tests and local play.
//   - wsnet:  websocket client for the relay server.

package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// EventKind says what happened.
type EventKind string

const (
	EventOpen       EventKind = "open"
	EventClose      EventKind = "close"
	EventError      EventKind = "error"
	EventData       EventKind = "data"
	EventConnection EventKind = "connection"
)

// Event is delivered on a sink channel.
//
// Listener events (open, close, error, connection) set Listener; for
// connection events Conn is the new incoming peer. Connection events
// (open, close, error, data) set Conn. Data carries one message.
type Event struct {
	Kind     EventKind
	Listener Listener
	Conn     Connection
	Data     []byte
	Err      error
}

// Connection is a message-oriented, ordered link to one peer.
type Connection interface {
	// PeerID is the identity of the remote end.
	PeerID() string
	// Metadata is whatever the connecting side attached, or nil.
	Metadata() json.RawMessage
	Send(data []byte) error
	// Close is idempotent. A close event follows on both ends.
	Close() error
}

// Listener accepts connections under a room identifier.
type Listener interface {
	ID() string
	Close() error
}

// Network opens listeners and outgoing connections.
type Network interface {
	Listen(ctx context.Context, id string, sink chan<- Event) (Listener, error)
	Connect(ctx context.Context, remoteID string, metadata json.RawMessage, sink chan<- Event) (Connection, error)
}

var (
	ErrAddressInUse = errors.New("room id already in use")
	ErrNoSuchRoom   = errors.New("no such room")
	ErrClosed       = errors.New("connection closed")
)
