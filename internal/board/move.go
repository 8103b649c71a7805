// internal/board/move.go
//
// Movement resolution: a token slides in a direction until the next step
// would cross a wall segment, leave the grid or enter a cell held by
// another token.
//
// Resolve is pure: it never mutates its inputs and always returns the
// full position array. A move that cannot advance returns the input
// unchanged, which callers use to detect no-op moves.

package board

import "fmt"

// Resolve slides token in dir and returns the new positions.
func Resolve(b *Board, pos TokenPositions, token int, dir Direction) (TokenPositions, error) {
	if token < 0 || token >= NumTokens {
		return pos, fmt.Errorf("%w: %d", ErrInvalidToken, token)
	}
	if !dir.Valid() {
		return pos, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	if err := b.checkPositions(pos); err != nil {
		return pos, err
	}

	w, h := b.Width, b.Height()
	occupied := func(x, y int) bool {
		idx := y*w + x
		for i, p := range pos {
			if i != token && p == idx {
				return true
			}
		}
		return false
	}

	x, y := pos[token]%w, pos[token]/w
	switch dir {
	case Down:
		for y < h-1 && !b.HorizontalWalls[y*w+x] && !occupied(x, y+1) {
			y++
		}
	case Up:
		for y > 0 && !b.HorizontalWalls[(y-1)*w+x] && !occupied(x, y-1) {
			y--
		}
	case Right:
		for x < w-1 && !b.VerticalWalls[y*(w-1)+x] && !occupied(x+1, y) {
			x++
		}
	case Left:
		for x > 0 && !b.VerticalWalls[y*(w-1)+x-1] && !occupied(x-1, y) {
			x--
		}
	}

	out := pos
	out[token] = y*w + x
	return out, nil
}

// Move is Resolve on the receiver.
func (b *Board) Move(pos TokenPositions, token int, dir Direction) (TokenPositions, error) {
	return Resolve(b, pos, token, dir)
}
