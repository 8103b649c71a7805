package session

import (
	"github.com/robalobadob/ripoff-robots/internal/protocol"
	"github.com/robalobadob/ripoff-robots/internal/room"
	"github.com/robalobadob/ripoff-robots/internal/transport"
)

func (s *Session) clientEvent(st *clientState, ev transport.Event) {
	if ev.Conn == nil || ev.Conn != st.conn {
		return
	}
	switch ev.Kind {
	case transport.EventOpen:
		st.open = true
		s.log.Info().Str("room", st.conn.PeerID()).Msg("connected")
		s.emit(Notification{Kind: NotifyNetworkChanged, Phase: PhaseConnected})
	case transport.EventData:
		s.clientData(ev.Data)
	case transport.EventError:
		s.log.Warn().Err(ev.Err).Str("room", st.conn.PeerID()).Msg("connection error")
		s.emit(Notification{Kind: NotifyTransportError, Err: ev.Err})
	case transport.EventClose:
		s.teardown()
	}
}

// clientData mirrors one host message into local state.
func (s *Session) clientData(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding message")
		s.emit(Notification{Kind: NotifyProtocolError, Err: err})
		return
	}

	switch m := msg.(type) {
	case protocol.BoardState:
		// authoritative: local moves are dropped, not merged
		s.setBoard(m.Board)
	case protocol.PlayerJoin:
		for i, id := range m.IDs {
			s.room.Join(id, m.Names[i])
			s.room.SetScore(id, m.Scores[i])
		}
		s.emit(Notification{Kind: NotifyRoomChanged})
	case protocol.PlayerLeave:
		s.room.Leave(m.ID)
		s.room.Bids.Withdraw(m.ID)
		if s.round.Evaluating != nil && s.round.Evaluating.Player == m.ID {
			s.round.Evaluating = nil
		}
		s.emit(Notification{Kind: NotifyRoomChanged, Player: m.ID})
	case protocol.StartBid:
		s.room.Bids.Clear()
		s.round = RoundInfo{Open: true, EndTime: m.EndTime}
		s.emit(Notification{Kind: NotifyBidRoundStarted, EndTime: m.EndTime})
	case protocol.UpdateBid:
		s.seq++
		s.room.Bids.Withdraw(m.Player)
		s.room.Bids.Push(room.Bid{Timestamp: s.seq, Bid: m.Bid, Player: m.Player})
		s.emit(Notification{Kind: NotifyBidUpdated, Player: m.Player, Bid: m.Bid})
	case protocol.StartEval:
		b, ok := s.room.Bids.Withdraw(m.Player)
		if !ok {
			b = room.Bid{Player: m.Player}
		}
		s.round.Open = false
		s.round.Evaluating = &b
		s.emit(Notification{Kind: NotifyEvalStarted, Player: m.Player, Bid: b.Bid})
	default:
		err := unsupported(msg.Kind(), "client")
		s.log.Warn().Err(err).Msg("rejecting message")
		s.emit(Notification{Kind: NotifyProtocolError, Err: err})
	}
}
