// internal/transport/memnet/memnet.go
//
// In-process implementation of transport.Network.
// Responsibilities:
//   - Register listeners by room id and refuse duplicates.
//   - Pair connections so Send on one end becomes a data event on the other.
//   - Emit open/close events in the same order a real transport would.
//
// Notes:
//   - Event delivery blocks when a sink is full; size sinks accordingly.
//   - Events are never sent while an internal lock is held.

package memnet

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/robalobadob/ripoff-robots/internal/transport"
)

// Network is a registry of in-process listeners. The zero value is not
// usable; call New.
type Network struct {
	mu        sync.Mutex
	listeners map[string]*listener
}

func New() *Network {
	return &Network{listeners: map[string]*listener{}}
}

type listener struct {
	net  *Network
	id   string
	sink chan<- transport.Event

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
}

// link is the state shared by both ends of a connection.
type link struct {
	mu     sync.Mutex
	closed bool
}

type conn struct {
	link     *link
	peerID   string
	metadata json.RawMessage
	sink     chan<- transport.Event
	remote   *conn
	owner    *listener // set on the accepting side
}

func (n *Network) Listen(ctx context.Context, id string, sink chan<- transport.Event) (transport.Listener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	if _, ok := n.listeners[id]; ok {
		n.mu.Unlock()
		return nil, transport.ErrAddressInUse
	}
	l := &listener{net: n, id: id, sink: sink, conns: map[*conn]struct{}{}}
	n.listeners[id] = l
	n.mu.Unlock()

	sink <- transport.Event{Kind: transport.EventOpen, Listener: l}
	return l, nil
}

func (n *Network) Connect(ctx context.Context, remoteID string, metadata json.RawMessage, sink chan<- transport.Event) (transport.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	l, ok := n.listeners[remoteID]
	n.mu.Unlock()
	if !ok {
		return nil, transport.ErrNoSuchRoom
	}

	lk := &link{}
	local := &conn{link: lk, peerID: remoteID, sink: sink}
	accepted := &conn{link: lk, peerID: uuid.NewString(), metadata: metadata, sink: l.sink, owner: l}
	local.remote, accepted.remote = accepted, local

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, transport.ErrNoSuchRoom
	}
	l.conns[accepted] = struct{}{}
	l.mu.Unlock()

	l.sink <- transport.Event{Kind: transport.EventConnection, Listener: l, Conn: accepted}
	l.sink <- transport.Event{Kind: transport.EventOpen, Conn: accepted}
	sink <- transport.Event{Kind: transport.EventOpen, Conn: local}
	return local, nil
}

// Rooms lists the ids currently listening.
func (n *Network) Rooms() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.listeners))
	for id := range n.listeners {
		out = append(out, id)
	}
	return out
}

func (l *listener) ID() string { return l.id }

// Close drops every accepted connection, then reports its own close.
func (l *listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conns := make([]*conn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.conns = map[*conn]struct{}{}
	l.mu.Unlock()

	l.net.mu.Lock()
	if l.net.listeners[l.id] == l {
		delete(l.net.listeners, l.id)
	}
	l.net.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	l.sink <- transport.Event{Kind: transport.EventClose, Listener: l}
	return nil
}

func (c *conn) PeerID() string            { return c.peerID }
func (c *conn) Metadata() json.RawMessage { return c.metadata }

func (c *conn) Send(data []byte) error {
	c.link.mu.Lock()
	closed := c.link.closed
	c.link.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.remote.sink <- transport.Event{Kind: transport.EventData, Conn: c.remote, Data: buf}
	return nil
}

func (c *conn) Close() error {
	c.link.mu.Lock()
	if c.link.closed {
		c.link.mu.Unlock()
		return nil
	}
	c.link.closed = true
	c.link.mu.Unlock()

	for _, end := range []*conn{c, c.remote} {
		if end.owner != nil {
			end.owner.mu.Lock()
			delete(end.owner.conns, end)
			end.owner.mu.Unlock()
		}
	}
	c.sink <- transport.Event{Kind: transport.EventClose, Conn: c}
	c.remote.sink <- transport.Event{Kind: transport.EventClose, Conn: c.remote}
	return nil
}

// Fault reports err on c's own sink, as a transport would on a network
// error. Connections not created by memnet are ignored.
func Fault(c transport.Connection, err error) {
	if mc, ok := c.(*conn); ok {
		mc.sink <- transport.Event{Kind: transport.EventError, Conn: mc, Err: err}
	}
}
