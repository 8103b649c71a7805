// internal/transport/wsnet/wsnet.go
//
// transport.Network over the websocket relay (internal/relay).
// Responsibilities:
//   - Listen: claim the room over HTTP, attach as host and demultiplex
//     relay Frames into per-peer connections.
//   - Connect: join a room; every websocket message is one data event.
//   - Report open/close/error the way memnet does, exactly one close
//     per connection.
//
// Notes:
//   - Sink sends block when the sink is full, like memnet.
//   - Writes on a websocket are serialized by a per-socket mutex;
//     gorilla/websocket allows one concurrent writer.

package wsnet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/ripoff-robots/internal/relay"
	"github.com/robalobadob/ripoff-robots/internal/transport"
)

const writeWait = 10 * time.Second

var ErrWrongPassphrase = errors.New("wrong room passphrase")

// Network talks to one relay.
type Network struct {
	BaseURL    string // http(s)://host:port of the relay
	Passphrase string // set on the host to lock the room, on clients to enter it
	HTTP       *http.Client
	Dialer     *websocket.Dialer
	Logger     *zerolog.Logger
}

func New(baseURL string) *Network {
	return &Network{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (n *Network) httpClient() *http.Client {
	if n.HTTP != nil {
		return n.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (n *Network) dialer() *websocket.Dialer {
	if n.Dialer != nil {
		return n.Dialer
	}
	return websocket.DefaultDialer
}

func (n *Network) logger() zerolog.Logger {
	if n.Logger != nil {
		return *n.Logger
	}
	return log.Logger.With().Str("component", "wsnet").Logger()
}

// wsBase turns the relay's http(s) URL into the matching ws(s) URL.
func (n *Network) wsBase() (*url.URL, error) {
	u, err := url.Parse(n.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u, nil
}

type claimRes struct {
	Token string `json:"token"`
}

func (n *Network) claim(ctx context.Context, id string) (string, error) {
	body, _ := json.Marshal(map[string]string{"passphrase": n.Passphrase})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL+"/rooms/"+url.PathEscape(id), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("claim room: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
	case http.StatusConflict:
		return "", transport.ErrAddressInUse
	default:
		return "", fmt.Errorf("claim room: relay returned %s", resp.Status)
	}
	var out claimRes
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		return "", fmt.Errorf("claim room: bad response")
	}
	return out.Token, nil
}

// ---------------------------------------------------------------------------
// Host side
// ---------------------------------------------------------------------------

type listener struct {
	id   string
	ws   *websocket.Conn
	sink chan<- transport.Event
	log  zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	conns   map[string]*hostConn
	closing bool
	done    chan struct{}
}

type hostConn struct {
	l        *listener
	peer     string
	metadata json.RawMessage
	closed   bool // guarded by l.mu
}

func (n *Network) Listen(ctx context.Context, id string, sink chan<- transport.Event) (transport.Listener, error) {
	token, err := n.claim(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err := n.wsBase()
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/rooms/" + id + "/host"
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	ws, _, err := n.dialer().DialContext(ctx, u.String(), h)
	if err != nil {
		return nil, fmt.Errorf("attach host: %w", err)
	}

	l := &listener{
		id:    id,
		ws:    ws,
		sink:  sink,
		log:   n.logger().With().Str("room", id).Logger(),
		conns: map[string]*hostConn{},
		done:  make(chan struct{}),
	}
	sink <- transport.Event{Kind: transport.EventOpen, Listener: l}
	go l.readLoop()
	return l, nil
}

func (l *listener) ID() string { return l.id }

func (l *listener) write(f relay.Frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return l.ws.WriteMessage(websocket.TextMessage, raw)
}

func (l *listener) readLoop() {
	var readErr error
	for {
		var f relay.Frame
		if err := l.ws.ReadJSON(&f); err != nil {
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				l.log.Warn().Err(err).Msg("bad frame from relay")
				continue
			}
			readErr = err
			break
		}
		switch f.Kind {
		case relay.FrameConnection:
			c := &hostConn{l: l, peer: f.Peer, metadata: f.Metadata}
			l.mu.Lock()
			l.conns[f.Peer] = c
			l.mu.Unlock()
			l.sink <- transport.Event{Kind: transport.EventConnection, Listener: l, Conn: c}
			l.sink <- transport.Event{Kind: transport.EventOpen, Conn: c}
		case relay.FrameData:
			l.mu.Lock()
			c := l.conns[f.Peer]
			l.mu.Unlock()
			if c != nil {
				l.sink <- transport.Event{Kind: transport.EventData, Conn: c, Data: f.Data}
			}
		case relay.FrameClose:
			if c := l.drop(f.Peer); c != nil {
				l.sink <- transport.Event{Kind: transport.EventClose, Conn: c}
			}
		}
	}

	l.mu.Lock()
	closing := l.closing
	l.closing = true
	var rest []*hostConn
	for peer, c := range l.conns {
		c.closed = true
		rest = append(rest, c)
		delete(l.conns, peer)
	}
	l.mu.Unlock()

	if !closing && websocket.IsUnexpectedCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		l.sink <- transport.Event{Kind: transport.EventError, Listener: l, Err: readErr}
	}
	for _, c := range rest {
		l.sink <- transport.Event{Kind: transport.EventClose, Conn: c}
	}
	_ = l.ws.Close()
	l.sink <- transport.Event{Kind: transport.EventClose, Listener: l}
	close(l.done)
}

// drop removes peer, returning it only if this call closed it.
func (l *listener) drop(peer string) *hostConn {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.conns[peer]
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	delete(l.conns, peer)
	return c
}

// Close leaves the relay; the relay then closes every peer. Close events
// for remaining connections and the listener follow from the read loop.
func (l *listener) Close() error {
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return nil
	}
	l.closing = true
	l.mu.Unlock()

	l.writeMu.Lock()
	_ = l.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	l.writeMu.Unlock()
	go func() {
		select {
		case <-l.done:
		case <-time.After(writeWait):
			_ = l.ws.Close()
		}
	}()
	return nil
}

func (c *hostConn) PeerID() string            { return c.peer }
func (c *hostConn) Metadata() json.RawMessage { return c.metadata }

func (c *hostConn) Send(data []byte) error {
	c.l.mu.Lock()
	closed := c.closed
	c.l.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	if err := c.l.write(relay.Frame{Kind: relay.FrameData, Peer: c.peer, Data: data}); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return nil
}

func (c *hostConn) Close() error {
	if c.l.drop(c.peer) != c {
		return nil
	}
	_ = c.l.write(relay.Frame{Kind: relay.FrameClose, Peer: c.peer})
	c.l.sink <- transport.Event{Kind: transport.EventClose, Conn: c}
	return nil
}

// ---------------------------------------------------------------------------
// Client side
// ---------------------------------------------------------------------------

type clientConn struct {
	peer string
	ws   *websocket.Conn
	sink chan<- transport.Event

	writeMu sync.Mutex

	mu      sync.Mutex
	closing bool
	once    sync.Once
}

func (n *Network) Connect(ctx context.Context, remoteID string, metadata json.RawMessage, sink chan<- transport.Event) (transport.Connection, error) {
	u, err := n.wsBase()
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/rooms/" + remoteID + "/join"
	q := url.Values{}
	if len(metadata) > 0 {
		q.Set("metadata", string(metadata))
	}
	if n.Passphrase != "" {
		q.Set("passphrase", n.Passphrase)
	}
	u.RawQuery = q.Encode()

	ws, resp, err := n.dialer().DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return nil, transport.ErrNoSuchRoom
			case http.StatusForbidden:
				return nil, ErrWrongPassphrase
			}
		}
		return nil, fmt.Errorf("join room: %w", err)
	}

	c := &clientConn{peer: remoteID, ws: ws, sink: sink}
	sink <- transport.Event{Kind: transport.EventOpen, Conn: c}
	go c.readLoop()
	return c, nil
}

func (c *clientConn) PeerID() string            { return c.peer }
func (c *clientConn) Metadata() json.RawMessage { return nil }

func (c *clientConn) readLoop() {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closing := c.closing
			c.mu.Unlock()
			if !closing && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.sink <- transport.Event{Kind: transport.EventError, Conn: c, Err: err}
			}
			break
		}
		c.sink <- transport.Event{Kind: transport.EventData, Conn: c, Data: raw}
	}
	_ = c.ws.Close()
	c.finish()
}

func (c *clientConn) finish() {
	c.once.Do(func() {
		c.sink <- transport.Event{Kind: transport.EventClose, Conn: c}
	})
}

func (c *clientConn) Send(data []byte) error {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if closing {
		return transport.ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return nil
}

func (c *clientConn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	_ = c.ws.Close()
	c.finish()
	return nil
}
