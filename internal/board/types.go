// internal/board/types.go
//
// Core type definitions for the robot puzzle board.
// Defines:
//   - Board: grid width, wall segments and the tokens' starting cells.
//   - TokenPositions: cell index of each of the five tokens.
//   - Direction: one of the four slide directions.
//
// Cell indexing is row-major: index = y*width + x, origin top-left.

package board

import (
	"errors"
	"fmt"
)

// Token identifies one of the five sliding pieces.
const (
	Red = iota
	Yellow
	Green
	Blue
	Black

	NumTokens
)

var tokenNames = [NumTokens]string{"red", "yellow", "green", "blue", "black"}

// TokenName returns the lowercase colour of a token, or "" if out of range.
func TokenName(token int) string {
	if token < 0 || token >= NumTokens {
		return ""
	}
	return tokenNames[token]
}

// ParseToken accepts a colour name or its index.
func ParseToken(s string) (int, error) {
	for i, n := range tokenNames {
		if s == n || s == fmt.Sprint(i) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidToken, s)
}

// TokenPositions holds the cell index of each token, indexed by token.
type TokenPositions [NumTokens]int

// Direction is the slide direction of a move.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// ParseDirection converts "up"/"down"/"left"/"right".
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
	return d, nil
}

// UnmarshalText parses a direction name.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

var (
	ErrInvalidDimensions = errors.New("invalid board dimensions")
	ErrInvalidBoard      = errors.New("invalid board")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidPosition   = errors.New("invalid token position")
)

// Board is the immutable layout of one puzzle.
//
// HorizontalWalls has width*(height-1) entries; entry y*width+x is a wall
// between (x, y) and (x, y+1). VerticalWalls has (width-1)*height entries;
// entry y*(width-1)+x is a wall between (x, y) and (x+1, y).
type Board struct {
	Width            int            `json:"width"`
	HorizontalWalls  []bool         `json:"horizontal_walls"`
	VerticalWalls    []bool         `json:"vertical_walls"`
	InitialPositions TokenPositions `json:"initial_positions"`
}

// Height is derived from the horizontal wall count.
func (b *Board) Height() int {
	return len(b.HorizontalWalls)/b.Width + 1
}

// Cells is width*height.
func (b *Board) Cells() int { return b.Width * b.Height() }

// IsCenterTile reports whether tile lies in the blocked-off middle 2x2.
func (b *Board) IsCenterTile(tile int) bool {
	x, y := tile%b.Width, tile/b.Width
	h := b.Height()
	return b.Width/2-1 <= x && x <= b.Width/2 &&
		h/2-1 <= y && y <= h/2
}

// Validate checks array lengths and initial positions. Boards arriving
// over the network go through this before they are used.
func (b *Board) Validate() error {
	if b == nil || b.Width < 2 {
		return fmt.Errorf("%w: width must be at least 2", ErrInvalidBoard)
	}
	if len(b.HorizontalWalls)%b.Width != 0 {
		return fmt.Errorf("%w: %d horizontal walls for width %d", ErrInvalidBoard, len(b.HorizontalWalls), b.Width)
	}
	h := b.Height()
	if len(b.VerticalWalls) != (b.Width-1)*h {
		return fmt.Errorf("%w: %d vertical walls, want %d", ErrInvalidBoard, len(b.VerticalWalls), (b.Width-1)*h)
	}
	if err := b.checkPositions(b.InitialPositions); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	return nil
}

func (b *Board) checkPositions(pos TokenPositions) error {
	cells := b.Cells()
	for i, p := range pos {
		if p < 0 || p >= cells {
			return fmt.Errorf("%w: %s at %d outside %d cells", ErrInvalidPosition, tokenNames[i], p, cells)
		}
		for j := 0; j < i; j++ {
			if pos[j] == p {
				return fmt.Errorf("%w: %s and %s share cell %d", ErrInvalidPosition, tokenNames[j], tokenNames[i], p)
			}
		}
	}
	return nil
}
