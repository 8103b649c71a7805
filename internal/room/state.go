// internal/room/state.go
//
// Room state shared by everyone in a session.
// Holds:
//   - players: peer identity → display name.
//   - scores:  peer identity → points, 0 for anyone without an entry.
//   - Bids:    the current round's bid queue.
//
// The host is the only writer of the authoritative copy; clients mirror it
// from host messages. State is not safe for concurrent use; the session
// serializes access.

package room

import "sort"

// Player is a roster entry as shown to users.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score uint   `json:"score"`
}

type State struct {
	players map[string]string
	scores  map[string]uint
	Bids    BidQueue
}

func NewState() *State {
	return &State{players: map[string]string{}, scores: map[string]uint{}}
}

// Join adds or renames a player. Scores are untouched.
func (s *State) Join(id, name string) {
	s.players[id] = name
}

// SetScore overwrites a player's score.
func (s *State) SetScore(id string, score uint) {
	if score == 0 {
		delete(s.scores, id)
		return
	}
	s.scores[id] = score
}

// Leave drops the player and their score.
func (s *State) Leave(id string) {
	delete(s.players, id)
	delete(s.scores, id)
}

// Has reports whether id is on the roster.
func (s *State) Has(id string) bool {
	_, ok := s.players[id]
	return ok
}

// Name returns the display name, or "" if id is unknown.
func (s *State) Name(id string) string { return s.players[id] }

// Score returns 0 for unknown ids.
func (s *State) Score(id string) uint { return s.scores[id] }

// AddPoint increments id's score and returns the new value.
func (s *State) AddPoint(id string) uint {
	s.scores[id]++
	return s.scores[id]
}

func (s *State) Len() int { return len(s.players) }

// Players returns the roster sorted by score descending, then name, then id.
func (s *State) Players() []Player {
	out := make([]Player, 0, len(s.players))
	for id, name := range s.players {
		out = append(out, Player{ID: id, Name: name, Score: s.scores[id]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Reset empties the roster, scores and bids.
func (s *State) Reset() {
	s.players = map[string]string{}
	s.scores = map[string]uint{}
	s.Bids.Clear()
}
