// internal/board/generate.go
//
// Procedural board generation.
// Responsibilities:
//   - Scatter isolated obstacle cells, each with an "L" of two walls.
//   - Add wall stubs along the four outer edges.
//   - Wall off the central 2x2 block.
//   - Place the five tokens on the first five cells of the top row.
//
// Notes:
//   - All randomness comes from the injected rng.Source.
//   - Dimensions are validated before anything is allocated.

package board

import (
	"fmt"

	"github.com/robalobadob/ripoff-robots/internal/rng"
)

const (
	DefaultWidth     = 16
	DefaultHeight    = 16
	DefaultObstacles = 16
)

// Range is a half-open interval [Lo, Hi) of edge-wall offsets.
type Range struct{ Lo, Hi int }

// DefaultEdgeRanges places one stub per edge in each half of a 16x16 board.
var DefaultEdgeRanges = [2]Range{{4, 7}, {9, 12}}

// Generator builds boards from a random source.
type Generator struct {
	Source     rng.Source
	Obstacles  int
	EdgeRanges [2]Range
}

// NewGenerator uses the default obstacle count and edge ranges.
// A nil source falls back to a time-seeded one.
func NewGenerator(src rng.Source) *Generator {
	if src == nil {
		src = rng.New()
	}
	return &Generator{Source: src, Obstacles: DefaultObstacles, EdgeRanges: DefaultEdgeRanges}
}

// Generate is shorthand for NewGenerator(src).Generate(width, height).
func Generate(width, height int, src rng.Source) (*Board, error) {
	return NewGenerator(src).Generate(width, height)
}

// Generate returns a fresh board of the given size.
func (g *Generator) Generate(width, height int) (*Board, error) {
	b, _, err := g.generate(width, height)
	return b, err
}

// cell is an (x, y) grid coordinate.
type cell struct{ x, y int }

func (g *Generator) check(width, height int) error {
	if width < 4 || height < 4 {
		return fmt.Errorf("%w: %dx%d, need at least 4x4", ErrInvalidDimensions, width, height)
	}
	for _, r := range g.EdgeRanges {
		if r.Lo < 1 || r.Hi <= r.Lo || r.Hi > width-1 || r.Hi > height-1 {
			return fmt.Errorf("%w: edge range [%d, %d) does not fit %dx%d", ErrInvalidDimensions, r.Lo, r.Hi, width, height)
		}
	}
	if g.Obstacles < 0 {
		return fmt.Errorf("%w: negative obstacle count", ErrInvalidDimensions)
	}
	// Each placed obstacle rules out at most 9 interior cells, so placement
	// cannot get stuck while the interior is larger than that.
	if g.Obstacles > 0 && (width-2)*(height-2) <= 9*(g.Obstacles-1) {
		return fmt.Errorf("%w: %dx%d is too small for %d obstacles", ErrInvalidDimensions, width, height, g.Obstacles)
	}
	return nil
}

func (g *Generator) generate(width, height int) (*Board, []cell, error) {
	if err := g.check(width, height); err != nil {
		return nil, nil, err
	}
	src := g.Source
	if src == nil {
		src = rng.New()
	}

	b := &Board{
		Width:            width,
		HorizontalWalls:  make([]bool, width*(height-1)),
		VerticalWalls:    make([]bool, (width-1)*height),
		InitialPositions: TokenPositions{0, 1, 2, 3, 4},
	}
	hw, vw := b.HorizontalWalls, b.VerticalWalls

	// obstacles
	used := make(map[cell]bool, g.Obstacles)
	obstacles := make([]cell, 0, g.Obstacles)
	for n := 0; n < g.Obstacles; n++ {
		var c cell
		for {
			c = cell{src.Uniform(1, width-1), src.Uniform(1, height-1)}
			if !nearUsed(used, c) {
				break
			}
		}
		used[c] = true
		obstacles = append(obstacles, c)

		// wall above or below, then wall left or right
		dy := coin(src)
		hw[(c.y+dy-1)*width+c.x] = true
		dx := coin(src)
		vw[c.y*(width-1)+c.x+dx-1] = true
	}

	// edge stubs: left and right columns get horizontal walls,
	// top and bottom rows get vertical walls
	lastRow := (height - 1) * (width - 1)
	for _, r := range g.EdgeRanges {
		hw[src.Uniform(r.Lo, r.Hi)*width] = true
	}
	for _, r := range g.EdgeRanges {
		hw[src.Uniform(r.Lo, r.Hi)*width+(width-1)] = true
	}
	for _, r := range g.EdgeRanges {
		vw[src.Uniform(r.Lo, r.Hi)] = true
	}
	for _, r := range g.EdgeRanges {
		vw[src.Uniform(r.Lo, r.Hi)+lastRow] = true
	}

	// center block
	cx, cy := width/2, height/2
	vw[cx-2+(cy-1)*(width-1)] = true
	vw[cx+(cy-1)*(width-1)] = true
	vw[cx-2+cy*(width-1)] = true
	vw[cx+cy*(width-1)] = true
	hw[cx-1+(cy-2)*width] = true
	hw[cx+(cy-2)*width] = true
	hw[cx-1+cy*width] = true
	hw[cx+cy*width] = true

	return b, obstacles, nil
}

func coin(src rng.Source) int {
	if src.Bool() {
		return 1
	}
	return 0
}

// nearUsed reports whether c or any of its 8 neighbours is taken.
func nearUsed(used map[cell]bool, c cell) bool {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if used[cell{c.x + dx, c.y + dy}] {
				return true
			}
		}
	}
	return false
}
