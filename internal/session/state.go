package session

import "github.com/robalobadob/ripoff-robots/internal/transport"

// Phase is the externally visible network state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseHosting   Phase = "hosting"
	PhaseJoining   Phase = "joining"
	PhaseConnected Phase = "connected"
)

// networkState is one of idleState, clientState or serverState.
// Only teardown may install idleState on a live session.
type networkState interface {
	phase() Phase
}

type idleState struct{}

type clientState struct {
	conn transport.Connection
	open bool
}

type serverState struct {
	listener    transport.Listener
	conns       []transport.Connection
	initialized bool // listener reported open
}

func (idleState) phase() Phase { return PhaseIdle }

func (c clientState) phase() Phase {
	if c.open {
		return PhaseConnected
	}
	return PhaseJoining
}

func (serverState) phase() Phase { return PhaseHosting }

func (s *serverState) indexOf(c transport.Connection) int {
	for i, have := range s.conns {
		if have == c {
			return i
		}
	}
	return -1
}
