package session

// NotificationKind says what changed.
type NotificationKind string

const (
	NotifyBoardChanged    NotificationKind = "board_changed"
	NotifyRoomChanged     NotificationKind = "room_changed"
	NotifyMoveApplied     NotificationKind = "move_applied"
	NotifyMovesReset      NotificationKind = "moves_reset"
	NotifyNetworkChanged  NotificationKind = "network_changed"
	NotifyBidRoundStarted NotificationKind = "bid_round_started"
	NotifyBidUpdated      NotificationKind = "bid_updated"
	NotifyEvalStarted     NotificationKind = "eval_started"
	NotifyTransportError  NotificationKind = "transport_error"
	NotifyProtocolError   NotificationKind = "protocol_error"
)

// Notification is delivered to subscribers after the change is applied.
// Only the fields relevant to Kind are set.
type Notification struct {
	Kind    NotificationKind
	Phase   Phase
	Move    *Move
	Player  string
	Bid     uint8
	EndTime uint64
	Err     error
}

// Subscribe registers fn for every notification and returns a function
// that removes it. fn runs without the session lock held and may call
// back into the session.
func (s *Session) Subscribe(fn func(Notification)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// emit queues n; callers hold s.mu.
func (s *Session) emit(n Notification) {
	s.pending = append(s.pending, n)
}

// unlock releases s.mu and delivers queued notifications.
func (s *Session) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	s.subsMu.Lock()
	subs := make([]func(Notification), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, n := range pending {
		for _, fn := range subs {
			fn(n)
		}
	}
}
