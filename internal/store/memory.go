// internal/store/memory.go
//
// Round history: every evaluated bid is recorded so players can see who
// has solved the most boards.
//
// This file defines the Store interface and an in-memory implementation
// used in tests and when no database path is configured.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// Round is one evaluated bid.
type Round struct {
	RoomID     string    `json:"roomId"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Bid        uint8     `json:"bid"`
	Solved     bool      `json:"solved"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Standing is a leaderboard row, aggregated by player name.
type Standing struct {
	PlayerName string `json:"playerName"`
	Solved     int    `json:"solved"`
	Attempts   int    `json:"attempts"`
}

var ErrInvalidRound = errors.New("invalid round")

// Store persists round results.
type Store interface {
	// SaveRound appends a result.
	SaveRound(ctx context.Context, r Round) error

	// Rounds returns a room's results, newest first.
	Rounds(ctx context.Context, roomID string, limit int) ([]Round, error)

	// Leaderboard ranks players by solved rounds, then fewer attempts.
	Leaderboard(ctx context.Context, limit int) ([]Standing, error)

	Close() error
}

const defaultLimit = 20

func validate(r Round) error {
	if strings.TrimSpace(r.RoomID) == "" || strings.TrimSpace(r.PlayerID) == "" {
		return ErrInvalidRound
	}
	return nil
}

// memory is an in-memory slice-backed Store implementation.
type memory struct {
	mu     sync.RWMutex // guards rounds
	rounds []Round
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{}
}

func (m *memory) SaveRound(ctx context.Context, r Round) error {
	if err := validate(r); err != nil {
		return err
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, r)
	return nil
}

func (m *memory) Rounds(ctx context.Context, roomID string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Round{}
	for i := len(m.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rounds[i].RoomID == roomID {
			out = append(out, m.rounds[i])
		}
	}
	return out, nil
}

func (m *memory) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	m.mu.RLock()
	byName := map[string]*Standing{}
	for _, r := range m.rounds {
		s := byName[r.PlayerName]
		if s == nil {
			s = &Standing{PlayerName: r.PlayerName}
			byName[r.PlayerName] = s
		}
		s.Attempts++
		if r.Solved {
			s.Solved++
		}
	}
	m.mu.RUnlock()

	out := make([]Standing, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sortStandings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) Close() error { return nil }

func sortStandings(s []Standing) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Solved != s[j].Solved {
			return s[i].Solved > s[j].Solved
		}
		if s[i].Attempts != s[j].Attempts {
			return s[i].Attempts < s[j].Attempts
		}
		return s[i].PlayerName < s[j].PlayerName
	})
}
