package relay

import "encoding/json"

// FrameKind tags frames on the host socket.
type FrameKind string

const (
	FrameConnection FrameKind = "connection" // relay → host: a peer joined
	FrameData       FrameKind = "data"       // both ways: one message for/from a peer
	FrameClose      FrameKind = "close"      // both ways: the peer is gone / drop the peer
)

// Frame is the envelope multiplexing every peer over the host's socket.
// Peers themselves see raw messages only.
type Frame struct {
	Kind     FrameKind       `json:"kind"`
	Peer     string          `json:"peer"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Data     []byte          `json:"data,omitempty"`
}
