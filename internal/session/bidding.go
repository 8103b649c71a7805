package session

import (
	"context"
	"fmt"

	"github.com/robalobadob/ripoff-robots/internal/protocol"
	"github.com/robalobadob/ripoff-robots/internal/room"
	"github.com/robalobadob/ripoff-robots/internal/store"
)

// StartBid opens a bidding round that closes at endTime (unix ms).
// Earlier bids are discarded.
func (s *Session) StartBid(endTime uint64) error {
	s.mu.Lock()
	defer s.unlock()
	st, ok := s.state.(*serverState)
	if !ok {
		return ErrNotHost
	}
	s.room.Bids.Clear()
	s.round = RoundInfo{Open: true, EndTime: endTime}
	s.broadcast(st, protocol.StartBid{EndTime: endTime}, nil)
	s.log.Info().Uint64("endTime", endTime).Msg("bidding open")
	s.emit(Notification{Kind: NotifyBidRoundStarted, EndTime: endTime})
	return nil
}

// MakeBid submits a bid: clients send it to the host, the host enters
// its own bid directly.
func (s *Session) MakeBid(bid uint8) error {
	s.mu.Lock()
	defer s.unlock()
	switch st := s.state.(type) {
	case *serverState:
		return s.acceptBid(st, st.listener.ID(), bid)
	case *clientState:
		if !st.open {
			return ErrNotConnected
		}
		raw, err := protocol.Encode(protocol.MakeBid{Bid: bid})
		if err != nil {
			return err
		}
		if err := st.conn.Send(raw); err != nil {
			return fmt.Errorf("send bid: %w", err)
		}
		return nil
	}
	return ErrNotConnected
}

// StartEval closes bidding and takes the best remaining bid for
// evaluation. It reports false when no bids are left.
func (s *Session) StartEval() (room.Bid, bool, error) {
	s.mu.Lock()
	defer s.unlock()
	st, ok := s.state.(*serverState)
	if !ok {
		return room.Bid{}, false, ErrNotHost
	}
	s.round.Open = false
	b, ok := s.room.Bids.Pop()
	if !ok {
		s.round.Evaluating = nil
		return room.Bid{}, false, nil
	}
	s.round.Evaluating = &b
	s.broadcast(st, protocol.StartEval{Player: b.Player}, nil)
	s.log.Info().Str("player", b.Player).Uint8("bid", b.Bid).Msg("evaluating bid")
	s.emit(Notification{Kind: NotifyEvalStarted, Player: b.Player, Bid: b.Bid})
	return b, true, nil
}

// ResolveEval records the outcome of the bid under evaluation. A solved
// bid scores a point and ends the round; a failed one leaves the
// remaining bids for the next StartEval.
func (s *Session) ResolveEval(ctx context.Context, solved bool) error {
	s.mu.Lock()
	st, ok := s.state.(*serverState)
	if !ok {
		s.unlock()
		return ErrNotHost
	}
	if s.round.Evaluating == nil {
		s.unlock()
		return ErrNoEvaluation
	}
	b := *s.round.Evaluating
	s.round.Evaluating = nil

	if solved {
		// a player who left mid-evaluation scores nothing
		if s.room.Has(b.Player) {
			score := s.room.AddPoint(b.Player)
			s.broadcast(st, protocol.PlayerJoin{
				IDs:    []string{b.Player},
				Names:  []string{s.room.Name(b.Player)},
				Scores: []uint{score},
			}, nil)
		}
		s.room.Bids.Clear()
		s.emit(Notification{Kind: NotifyRoomChanged, Player: b.Player})
	}
	r := store.Round{
		RoomID:     st.listener.ID(),
		PlayerID:   b.Player,
		PlayerName: s.room.Name(b.Player),
		Bid:        b.Bid,
		Solved:     solved,
		FinishedAt: s.now().UTC(),
	}
	s.log.Info().Str("player", b.Player).Bool("solved", solved).Msg("bid evaluated")
	db := s.store
	s.unlock()

	if db == nil {
		return nil
	}
	if err := db.SaveRound(ctx, r); err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}
