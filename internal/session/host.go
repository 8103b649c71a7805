package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/robalobadob/ripoff-robots/internal/protocol"
	"github.com/robalobadob/ripoff-robots/internal/room"
	"github.com/robalobadob/ripoff-robots/internal/transport"
)

// joinName extracts {"name": ...} from connection metadata.
func joinName(meta json.RawMessage) string {
	var v struct {
		Name string `json:"name"`
	}
	if len(meta) == 0 || json.Unmarshal(meta, &v) != nil {
		return DefaultName
	}
	if name := strings.TrimSpace(v.Name); name != "" {
		return name
	}
	return DefaultName
}

func (s *Session) hostEvent(st *serverState, ev transport.Event) {
	if ev.Listener != nil {
		if ev.Listener != st.listener {
			return
		}
		switch ev.Kind {
		case transport.EventOpen:
			st.initialized = true
			s.log.Info().Str("room", st.listener.ID()).Msg("listener open")
		case transport.EventConnection:
			s.hostAccept(st, ev.Conn)
		case transport.EventError:
			s.log.Warn().Err(ev.Err).Str("room", st.listener.ID()).Msg("listener error")
			s.emit(Notification{Kind: NotifyTransportError, Err: ev.Err})
		case transport.EventClose:
			s.teardown()
		}
		return
	}

	c := ev.Conn
	if c == nil || st.indexOf(c) < 0 {
		return
	}
	switch ev.Kind {
	case transport.EventOpen:
		s.hostSync(st, c)
	case transport.EventData:
		s.hostData(st, c, ev.Data)
	case transport.EventError:
		s.log.Warn().Err(ev.Err).Str("peer", c.PeerID()).Msg("connection error")
		s.emit(Notification{Kind: NotifyTransportError, Player: c.PeerID(), Err: ev.Err})
	case transport.EventClose:
		s.hostDrop(st, c)
	}
}

// hostAccept announces the newcomer to everyone already here, then
// registers it.
func (s *Session) hostAccept(st *serverState, c transport.Connection) {
	if c == nil || st.indexOf(c) >= 0 {
		return
	}
	id, name := c.PeerID(), joinName(c.Metadata())
	s.broadcast(st, protocol.PlayerJoin{IDs: []string{id}, Names: []string{name}, Scores: []uint{0}}, nil)

	st.conns = append(st.conns, c)
	s.room.Join(id, name)
	s.room.SetScore(id, 0)
	s.log.Info().Str("peer", id).Str("name", name).Int("players", s.room.Len()).Msg("player joined")
	s.emit(Notification{Kind: NotifyRoomChanged, Player: id})
}

// hostSync brings a newly opened connection up to date: board first,
// then the full roster, then any round in progress.
func (s *Session) hostSync(st *serverState, c transport.Connection) {
	s.send(c, protocol.BoardState{Board: s.board})

	players := s.room.Players()
	roster := protocol.PlayerJoin{
		IDs:    make([]string, 0, len(players)),
		Names:  make([]string, 0, len(players)),
		Scores: make([]uint, 0, len(players)),
	}
	for _, p := range players {
		roster.IDs = append(roster.IDs, p.ID)
		roster.Names = append(roster.Names, p.Name)
		roster.Scores = append(roster.Scores, p.Score)
	}
	s.send(c, roster)

	if s.round.Open {
		s.send(c, protocol.StartBid{EndTime: s.round.EndTime})
		for _, b := range s.room.Bids.Sorted() {
			s.send(c, protocol.UpdateBid{Player: b.Player, Bid: b.Bid})
		}
	}
}

func (s *Session) hostDrop(st *serverState, c transport.Connection) {
	i := st.indexOf(c)
	st.conns = append(st.conns[:i], st.conns[i+1:]...)
	id := c.PeerID()
	s.broadcast(st, protocol.PlayerLeave{ID: id}, nil)
	s.room.Leave(id)
	s.room.Bids.Withdraw(id)
	if s.round.Evaluating != nil && s.round.Evaluating.Player == id {
		s.round.Evaluating = nil
	}
	s.log.Info().Str("peer", id).Int("players", s.room.Len()).Msg("player left")
	s.emit(Notification{Kind: NotifyRoomChanged, Player: id})
}

func (s *Session) hostData(st *serverState, c transport.Connection, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Str("peer", c.PeerID()).Msg("discarding message")
		s.emit(Notification{Kind: NotifyProtocolError, Player: c.PeerID(), Err: err})
		return
	}
	switch m := msg.(type) {
	case protocol.MakeBid:
		if err := s.acceptBid(st, c.PeerID(), m.Bid); err != nil {
			s.log.Warn().Err(err).Str("peer", c.PeerID()).Uint8("bid", m.Bid).Msg("bid rejected")
			s.emit(Notification{Kind: NotifyProtocolError, Player: c.PeerID(), Err: err})
		}
	default:
		err := unsupported(msg.Kind(), "host")
		s.log.Warn().Err(err).Str("peer", c.PeerID()).Msg("rejecting message")
		s.emit(Notification{Kind: NotifyProtocolError, Player: c.PeerID(), Err: err})
	}
}

func unsupported(k protocol.Kind, role string) error {
	return fmt.Errorf("%w: %s sent to %s", protocol.ErrUnsupported, k, role)
}

// acceptBid stamps a bid with its receipt order, replaces the player's earlier
// bid and tells everyone.
func (s *Session) acceptBid(st *serverState, player string, bid uint8) error {
	if !s.round.Open {
		return ErrNoRound
	}
	s.room.Bids.Withdraw(player)
	s.seq++
	s.room.Bids.Push(room.Bid{Timestamp: s.seq, Bid: bid, Player: player})
	s.broadcast(st, protocol.UpdateBid{Player: player, Bid: bid}, nil)
	s.emit(Notification{Kind: NotifyBidUpdated, Player: player, Bid: bid})
	return nil
}
