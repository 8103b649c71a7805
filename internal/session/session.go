// internal/session/session.go
//
// A player's session: the local board and move log, the room roster and
// bids, and the network role (idle, host or client).
// Responsibilities:
//   - Host: accept connections, keep the authoritative board and roster,
//     sync late joiners, run bidding rounds.
//   - Client: mirror host messages into local state.
//   - Both: resolve local moves and notify subscribers of every change.
//
// Notes:
//   - Transport events arrive on one buffered channel; Run drains it and
//     Handle applies each event under the session lock, so handlers never
//     interleave with each other or with public calls.
//   - Leaving a room always goes through teardown, which notifies peers
//     and clears the roster before the state becomes idle.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/ripoff-robots/internal/board"
	"github.com/robalobadob/ripoff-robots/internal/protocol"
	"github.com/robalobadob/ripoff-robots/internal/rng"
	"github.com/robalobadob/ripoff-robots/internal/room"
	"github.com/robalobadob/ripoff-robots/internal/store"
	"github.com/robalobadob/ripoff-robots/internal/transport"
)

const (
	// RoomPrefix namespaces listener ids; players share only the suffix.
	RoomPrefix  = "ripoff-robots-"
	DefaultName = "Anonymous"

	defaultEventBuffer = 1024
)

var (
	ErrNotIdle      = errors.New("session already hosting or joined")
	ErrNotHost      = errors.New("only the host can do that")
	ErrNotConnected = errors.New("not in a room")
	ErrNoRound      = errors.New("no bidding round open")
	ErrNoEvaluation = errors.New("no bid under evaluation")
)

// Move is one effective entry in the move log.
type Move struct {
	Token     int             `json:"token"`
	Direction board.Direction `json:"direction"`
}

// Options configures New. Network is required.
type Options struct {
	Network transport.Network
	Name    string

	Width, Height int
	Generator     *board.Generator // nil: defaults with a time-seeded source
	IDSource      rng.Source       // room ids; nil: time-seeded

	Store  store.Store // optional round history
	Logger *zerolog.Logger
	Now    func() time.Time

	EventBuffer int
}

// RoundInfo describes the current bidding round.
type RoundInfo struct {
	Open       bool
	EndTime    uint64
	Evaluating *room.Bid
}

type Session struct {
	mu sync.Mutex

	net    transport.Network
	name   string
	gen    *board.Generator
	ids    rng.Source
	width  int
	height int
	store  store.Store
	log    zerolog.Logger
	now    func() time.Time

	events chan transport.Event
	state  networkState

	room      *room.State
	board     *board.Board
	positions board.TokenPositions
	moves     []Move
	round     RoundInfo
	seq       uint64 // bid arrival counter

	subsMu  sync.Mutex
	subs    map[int]func(Notification)
	nextSub int
	pending []Notification
}

// New builds an idle session with a freshly generated board.
func New(opts Options) (*Session, error) {
	if opts.Network == nil {
		return nil, errors.New("session: nil network")
	}
	s := &Session{
		net:    opts.Network,
		name:   strings.TrimSpace(opts.Name),
		gen:    opts.Generator,
		ids:    opts.IDSource,
		width:  opts.Width,
		height: opts.Height,
		store:  opts.Store,
		now:    opts.Now,
		state:  idleState{},
		room:   room.NewState(),
		subs:   map[int]func(Notification){},
	}
	if s.name == "" {
		s.name = DefaultName
	}
	if s.gen == nil {
		s.gen = board.NewGenerator(nil)
	}
	if s.ids == nil {
		s.ids = rng.New()
	}
	if s.width == 0 {
		s.width = board.DefaultWidth
	}
	if s.height == 0 {
		s.height = board.DefaultHeight
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	} else {
		s.log = log.With().Str("component", "session").Logger()
	}
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = defaultEventBuffer
	}
	s.events = make(chan transport.Event, buf)

	b, err := s.gen.Generate(s.width, s.height)
	if err != nil {
		return nil, err
	}
	s.setBoard(b)
	s.pending = nil
	return s, nil
}

// Run applies transport events until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			s.Handle(ev)
		}
	}
}

// Handle applies one transport event.
func (s *Session) Handle(ev transport.Event) {
	s.mu.Lock()
	defer s.unlock()

	switch st := s.state.(type) {
	case *serverState:
		s.hostEvent(st, ev)
	case *clientState:
		s.clientEvent(st, ev)
	default:
		// events from an already torn-down listener or connection
		s.log.Debug().Str("event", string(ev.Kind)).Msg("event while idle, ignored")
	}
}

// Host starts listening under a fresh room id and returns the code
// other players use to join.
func (s *Session) Host(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.unlock()
	if _, ok := s.state.(idleState); !ok {
		return "", ErrNotIdle
	}

	id := fmt.Sprintf("%s%x", RoomPrefix, s.ids.Uniform(0, math.MaxInt32))
	l, err := s.net.Listen(ctx, id, s.events)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", id, err)
	}

	s.room.Reset()
	s.room.Join(l.ID(), s.name)
	s.state = &serverState{listener: l}
	s.log.Info().Str("room", l.ID()).Msg("hosting")
	s.emit(Notification{Kind: NotifyNetworkChanged, Phase: PhaseHosting})
	s.emit(Notification{Kind: NotifyRoomChanged})
	return strings.TrimPrefix(l.ID(), RoomPrefix), nil
}

// Join connects to the room with the given code (with or without prefix).
func (s *Session) Join(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.unlock()
	if _, ok := s.state.(idleState); !ok {
		return ErrNotIdle
	}

	code = strings.TrimSpace(code)
	id := code
	if !strings.HasPrefix(id, RoomPrefix) {
		id = RoomPrefix + code
	}
	meta, _ := json.Marshal(map[string]string{"name": s.name})
	conn, err := s.net.Connect(ctx, id, meta, s.events)
	if err != nil {
		return fmt.Errorf("connect %s: %w", id, err)
	}

	s.room.Reset()
	s.state = &clientState{conn: conn}
	s.log.Info().Str("room", id).Msg("joining")
	s.emit(Notification{Kind: NotifyNetworkChanged, Phase: PhaseJoining})
	return nil
}

// Close leaves the room. It is a no-op when idle.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.unlock()
	s.teardown()
	return nil
}

// teardown notifies peers, closes every connection, clears the room and
// only then goes idle.
func (s *Session) teardown() {
	switch st := s.state.(type) {
	case *serverState:
		hostLeave := s.encode(protocol.PlayerLeave{ID: st.listener.ID()})
		for i, c := range st.conns {
			s.sendRaw(c, hostLeave)
			leave := s.encode(protocol.PlayerLeave{ID: c.PeerID()})
			for j, other := range st.conns {
				if j != i {
					s.sendRaw(other, leave)
				}
			}
		}
		for _, c := range st.conns {
			_ = c.Close()
		}
		_ = st.listener.Close()
		s.log.Info().Str("room", st.listener.ID()).Msg("stopped hosting")
	case *clientState:
		_ = st.conn.Close()
		s.log.Info().Str("room", st.conn.PeerID()).Msg("left room")
	default:
		return
	}

	s.room.Reset()
	s.round = RoundInfo{}
	s.state = idleState{}
	s.emit(Notification{Kind: NotifyRoomChanged})
	s.emit(Notification{Kind: NotifyNetworkChanged, Phase: PhaseIdle})
}

/* ------------------------------ accessors ------------------------------- */

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.phase()
}

// RoomCode is the shareable code, or "" when idle.
func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch st := s.state.(type) {
	case *serverState:
		return strings.TrimPrefix(st.listener.ID(), RoomPrefix)
	case *clientState:
		return strings.TrimPrefix(st.conn.PeerID(), RoomPrefix)
	}
	return ""
}

// Name is the local display name.
func (s *Session) Name() string { return s.name }

// Board is the current board. Callers must not modify it.
func (s *Session) Board() *board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

func (s *Session) Positions() board.TokenPositions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions
}

func (s *Session) Moves() []Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Move(nil), s.moves...)
}

func (s *Session) Players() []room.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Players()
}

// Score returns 0 for unknown players.
func (s *Session) Score(id string) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Score(id)
}

// Bids lists queued bids in evaluation order.
func (s *Session) Bids() []room.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Bids.Sorted()
}

func (s *Session) Round() RoundInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.round
	if r.Evaluating != nil {
		b := *r.Evaluating
		r.Evaluating = &b
	}
	return r
}

/* -------------------------------- play ---------------------------------- */

// Move slides token in dir on the local positions. It reports false for
// moves that go nowhere; those are not logged.
func (s *Session) Move(token int, dir board.Direction) (bool, error) {
	s.mu.Lock()
	defer s.unlock()
	next, err := board.Resolve(s.board, s.positions, token, dir)
	if err != nil {
		return false, err
	}
	if next == s.positions {
		return false, nil
	}
	s.positions = next
	m := Move{Token: token, Direction: dir}
	s.moves = append(s.moves, m)
	s.emit(Notification{Kind: NotifyMoveApplied, Move: &m})
	return true, nil
}

// ResetMoves puts every token back on its starting cell and clears the log.
func (s *Session) ResetMoves() {
	s.mu.Lock()
	defer s.unlock()
	s.positions = s.board.InitialPositions
	s.moves = nil
	s.emit(Notification{Kind: NotifyMovesReset})
}

// NewBoard generates a new board. A host also sends it to every peer and
// abandons the current bidding round.
func (s *Session) NewBoard() error {
	s.mu.Lock()
	defer s.unlock()
	if _, ok := s.state.(*clientState); ok {
		return ErrNotHost
	}
	b, err := s.gen.Generate(s.width, s.height)
	if err != nil {
		return err
	}
	s.setBoard(b)
	s.round = RoundInfo{}
	s.room.Bids.Clear()
	if st, ok := s.state.(*serverState); ok {
		s.broadcast(st, protocol.BoardState{Board: b}, nil)
	}
	return nil
}

func (s *Session) setBoard(b *board.Board) {
	s.board = b
	s.positions = b.InitialPositions
	s.moves = nil
	s.emit(Notification{Kind: NotifyBoardChanged})
}

/* ------------------------------- sending -------------------------------- */

func (s *Session) encode(m protocol.Message) []byte {
	raw, err := protocol.Encode(m)
	if err != nil {
		// only possible for values json cannot represent
		s.log.Error().Err(err).Str("type", string(m.Kind())).Msg("encode")
	}
	return raw
}

func (s *Session) sendRaw(c transport.Connection, raw []byte) {
	if raw == nil {
		return
	}
	if err := c.Send(raw); err != nil {
		s.log.Warn().Err(err).Str("peer", c.PeerID()).Msg("send failed")
	}
}

func (s *Session) send(c transport.Connection, m protocol.Message) {
	s.sendRaw(c, s.encode(m))
}

// broadcast sends m to every connection except skip.
func (s *Session) broadcast(st *serverState, m protocol.Message, skip transport.Connection) {
	raw := s.encode(m)
	for _, c := range st.conns {
		if c != skip {
			s.sendRaw(c, raw)
		}
	}
}
