// internal/protocol/messages.go
//
// Wire messages exchanged between a host and its clients.
// Every message is a JSON object with a "type" discriminator and
// snake_case fields, e.g.
//
//	{"type":"player_leave","id":"3f2c..."}
//
// Direction is informational only; the session decides which kinds a
// role accepts.

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robalobadob/ripoff-robots/internal/board"
)

// Kind is the value of the "type" field.
type Kind string

const (
	KindPlayerJoin  Kind = "player_join"
	KindPlayerLeave Kind = "player_leave"
	KindBoardState  Kind = "board_state"
	KindStartBid    Kind = "start_bid"
	KindMakeBid     Kind = "make_bid"
	KindUpdateBid   Kind = "update_bid"
	KindStartEval   Kind = "start_eval"
)

var (
	// ErrMalformed covers undecodable payloads and unknown kinds.
	ErrMalformed = errors.New("malformed message")
	// ErrUnsupported is returned when a role receives a kind it does not handle.
	ErrUnsupported = errors.New("unsupported message")
)

// Message is implemented by every wire message.
type Message interface {
	Kind() Kind
}

// PlayerJoin announces (or refreshes) one or more roster entries.
// Host → all clients. The three slices are parallel.
type PlayerJoin struct {
	IDs    []string `json:"ids"`
	Names  []string `json:"names"`
	Scores []uint   `json:"scores"`
}

// PlayerLeave removes a roster entry. Host → all clients.
type PlayerLeave struct {
	ID string `json:"id"`
}

// BoardState carries the full board. Host → client(s).
type BoardState struct {
	Board *board.Board `json:"board"`
}

// StartBid opens a bidding round ending at EndTime (unix ms). Host → all clients.
type StartBid struct {
	EndTime uint64 `json:"end_time"`
}

// MakeBid submits a bid. Client → host.
type MakeBid struct {
	Bid uint8 `json:"bid"`
}

// UpdateBid announces an accepted bid. Host → all clients.
type UpdateBid struct {
	Player string `json:"player"`
	Bid    uint8  `json:"bid"`
}

// StartEval names the player whose bid is being checked. Host → all clients.
type StartEval struct {
	Player string `json:"player"`
}

func (PlayerJoin) Kind() Kind  { return KindPlayerJoin }
func (PlayerLeave) Kind() Kind { return KindPlayerLeave }
func (BoardState) Kind() Kind  { return KindBoardState }
func (StartBid) Kind() Kind    { return KindStartBid }
func (MakeBid) Kind() Kind     { return KindMakeBid }
func (UpdateBid) Kind() Kind   { return KindUpdateBid }
func (StartEval) Kind() Kind   { return KindStartEval }

// Encode serializes m with its "type" tag.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	tag, _ := json.Marshal(m.Kind())
	fields["type"] = tag
	return json.Marshal(fields)
}

// Decode parses a tagged payload into its concrete message type.
// Failures wrap ErrMalformed.
func Decode(data []byte) (Message, error) {
	var env struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var m Message
	var err error
	switch env.Type {
	case KindPlayerJoin:
		var v PlayerJoin
		if err = json.Unmarshal(data, &v); err == nil {
			if len(v.IDs) != len(v.Names) || len(v.IDs) != len(v.Scores) {
				err = fmt.Errorf("player_join lists differ in length (%d/%d/%d)", len(v.IDs), len(v.Names), len(v.Scores))
			}
		}
		m = v
	case KindPlayerLeave:
		var v PlayerLeave
		err = json.Unmarshal(data, &v)
		m = v
	case KindBoardState:
		var v BoardState
		if err = json.Unmarshal(data, &v); err == nil {
			err = v.Board.Validate()
		}
		m = v
	case KindStartBid:
		var v StartBid
		err = json.Unmarshal(data, &v)
		m = v
	case KindMakeBid:
		var v MakeBid
		err = json.Unmarshal(data, &v)
		m = v
	case KindUpdateBid:
		var v UpdateBid
		err = json.Unmarshal(data, &v)
		m = v
	case KindStartEval:
		var v StartEval
		err = json.Unmarshal(data, &v)
		m = v
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return m, nil
}
