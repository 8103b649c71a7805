package main

import (
	"strings"

	"github.com/robalobadob/ripoff-robots/internal/board"
)

var tokenGlyphs = [board.NumTokens]byte{'R', 'Y', 'G', 'B', 'K'}

// render draws b as text with tokens at pos. Walls are drawn as "|" and
// "---", the blocked centre as "#".
func render(b *board.Board, pos board.TokenPositions) string {
	w, h := b.Width, b.Height()
	var sb strings.Builder
	rule := func() {
		sb.WriteByte('+')
		for x := 0; x < w; x++ {
			sb.WriteString("---+")
		}
		sb.WriteByte('\n')
	}

	rule()
	for y := 0; y < h; y++ {
		sb.WriteByte('|')
		for x := 0; x < w; x++ {
			idx := y*w + x
			glyph := byte('.')
			if b.IsCenterTile(idx) {
				glyph = '#'
			}
			for t, p := range pos {
				if p == idx {
					glyph = tokenGlyphs[t]
				}
			}
			sb.WriteByte(' ')
			sb.WriteByte(glyph)
			sb.WriteByte(' ')
			if x == w-1 || b.VerticalWalls[y*(w-1)+x] {
				sb.WriteByte('|')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
		if y == h-1 {
			break
		}
		sb.WriteByte('+')
		for x := 0; x < w; x++ {
			if b.HorizontalWalls[y*w+x] {
				sb.WriteString("---+")
			} else {
				sb.WriteString("   +")
			}
		}
		sb.WriteByte('\n')
	}
	rule()
	return sb.String()
}
