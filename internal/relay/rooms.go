// internal/relay/rooms.go
//
// Room registry and socket plumbing for the relay.
// Responsibilities:
//   - Track claimed rooms, their host socket and joined peers.
//   - Forward peer messages to the host wrapped in Frames, and host
//     Frames back to the addressed peer.
//   - Tear a room down when its host goes away.
//
// Each socket has one writer goroutine (writePump) fed by a buffered
// channel; readers run on the HTTP handler goroutine.

package relay

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 30 * time.Second
	sendBuffer  = 64
	maxReadSize = 1 << 20
)

var (
	ErrRoomTaken    = errors.New("room already claimed")
	ErrRoomNotFound = errors.New("room not found")
	ErrHostAttached = errors.New("host already attached")
)

// socket is one websocket plus its outbound queue.
type socket struct {
	ws        *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newSocket(ws *websocket.Conn) *socket {
	return &socket{ws: ws, send: make(chan []byte, sendBuffer)}
}

// enqueue drops the message if the socket is not keeping up.
func (s *socket) enqueue(msg []byte) bool {
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the writer, which then closes the websocket.
func (s *socket) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

func (s *socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// prepareRead installs the read limit and keepalive deadline.
func (s *socket) prepareRead() {
	s.ws.SetReadLimit(maxReadSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}

type room struct {
	id        string
	passHash  []byte
	claimedAt time.Time
	host      *socket
	peers     map[string]*socket
}

// RoomInfo is the public view returned by GET /rooms.
type RoomInfo struct {
	ID     string `json:"id"`
	Hosted bool   `json:"hosted"`
	Peers  int    `json:"peers"`
	Locked bool   `json:"locked"`
}

type hub struct {
	mu    sync.Mutex
	rooms map[string]*room
	ttl   time.Duration
	log   zerolog.Logger
}

func newHub(ttl time.Duration, log zerolog.Logger) *hub {
	return &hub{rooms: map[string]*room{}, ttl: ttl, log: log}
}

// claim reserves id. A claim nobody attached to within ttl can be retaken.
func (h *hub) claim(id string, passHash []byte, now time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok {
		if r.host != nil || now.Sub(r.claimedAt) < h.ttl {
			return ErrRoomTaken
		}
	}
	h.rooms[id] = &room{id: id, passHash: passHash, claimedAt: now, peers: map[string]*socket{}}
	return nil
}

func (h *hub) attachHost(id string, s *socket) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	if r.host != nil {
		return ErrHostAttached
	}
	r.host = s
	return nil
}

// hosted returns the room's passphrase hash if it has a host.
func (h *hub) hosted(id string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok || r.host == nil {
		return nil, ErrRoomNotFound
	}
	return r.passHash, nil
}

// addPeer registers a peer and tells the host about it.
func (h *hub) addPeer(id, peer string, meta json.RawMessage, s *socket) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok || r.host == nil {
		return ErrRoomNotFound
	}
	r.peers[peer] = s
	h.toHost(r, Frame{Kind: FrameConnection, Peer: peer, Metadata: meta})
	return nil
}

// fromPeer forwards one peer message to the host.
func (h *hub) fromPeer(id, peer string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok && r.peers[peer] != nil {
		h.toHost(r, Frame{Kind: FrameData, Peer: peer, Data: data})
	}
}

// removePeer drops a peer whose socket ended and tells the host.
func (h *hub) removePeer(id, peer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok {
		return
	}
	if s, ok := r.peers[peer]; ok {
		delete(r.peers, peer)
		s.close()
		h.toHost(r, Frame{Kind: FrameClose, Peer: peer})
	}
}

// fromHost applies a host frame: data is delivered, close drops the peer.
func (h *hub) fromHost(id string, f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok {
		return
	}
	s := r.peers[f.Peer]
	if s == nil {
		return
	}
	switch f.Kind {
	case FrameData:
		if !s.enqueue(f.Data) {
			h.log.Warn().Str("room", id).Str("peer", f.Peer).Msg("peer too slow, dropping")
			delete(r.peers, f.Peer)
			s.close()
			h.toHost(r, Frame{Kind: FrameClose, Peer: f.Peer})
		}
	case FrameClose:
		delete(r.peers, f.Peer)
		s.close()
	}
}

// closeRoom ends every peer socket and forgets the room.
func (h *hub) closeRoom(id string, host *socket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok || r.host != host {
		return
	}
	for _, s := range r.peers {
		s.close()
	}
	host.close()
	delete(h.rooms, id)
}

func (h *hub) toHost(r *room, f Frame) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	if !r.host.enqueue(raw) {
		h.log.Warn().Str("room", r.id).Msg("host too slow, frame dropped")
	}
}

func (h *hub) list() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, RoomInfo{ID: r.id, Hosted: r.host != nil, Peers: len(r.peers), Locked: r.passHash != nil})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
