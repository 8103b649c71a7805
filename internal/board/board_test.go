package board

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/robalobadob/ripoff-robots/internal/rng"
)

// emptyBoard returns a w x h board with no walls.
func emptyBoard(w, h int) *Board {
	return &Board{
		Width:            w,
		HorizontalWalls:  make([]bool, w*(h-1)),
		VerticalWalls:    make([]bool, (w-1)*h),
		InitialPositions: TokenPositions{0, 1, 2, 3, 4},
	}
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func TestGenerateShape(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		b, obstacles, err := NewGenerator(rng.NewSeeded(seed)).generate(16, 16)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(b.HorizontalWalls) != 16*15 || len(b.VerticalWalls) != 15*16 {
			t.Fatalf("seed %d: wall lengths %d/%d", seed, len(b.HorizontalWalls), len(b.VerticalWalls))
		}
		if b.Height() != 16 {
			t.Fatalf("seed %d: height %d", seed, b.Height())
		}
		if b.InitialPositions != (TokenPositions{0, 1, 2, 3, 4}) {
			t.Fatalf("seed %d: initial positions %v", seed, b.InitialPositions)
		}
		if err := b.Validate(); err != nil {
			t.Fatalf("seed %d: generated board invalid: %v", seed, err)
		}
		if len(obstacles) != DefaultObstacles {
			t.Fatalf("seed %d: %d obstacles", seed, len(obstacles))
		}
		for i, a := range obstacles {
			if a.x < 1 || a.x > 14 || a.y < 1 || a.y > 14 {
				t.Fatalf("seed %d: obstacle %v on the border", seed, a)
			}
			for _, c := range obstacles[:i] {
				dx, dy := a.x-c.x, a.y-c.y
				if dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1 {
					t.Fatalf("seed %d: obstacles %v and %v are adjacent", seed, a, c)
				}
			}
			above := b.HorizontalWalls[(a.y-1)*16+a.x]
			below := b.HorizontalWalls[a.y*16+a.x]
			left := b.VerticalWalls[a.y*15+a.x-1]
			right := b.VerticalWalls[a.y*15+a.x]
			if !(above || below) || !(left || right) {
				t.Fatalf("seed %d: obstacle %v missing its L walls", seed, a)
			}
		}
		// 16 obstacles x 2, 8 edge stubs, 8 center walls; obstacle walls
		// may coincide with center walls so this is an upper bound.
		if got := countTrue(b.HorizontalWalls) + countTrue(b.VerticalWalls); got > 48 || got < 40 {
			t.Fatalf("seed %d: %d walls set", seed, got)
		}
	}
}

func TestGenerateCenterBlock(t *testing.T) {
	b, err := Generate(16, 16, rng.NewSeeded(3))
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{6 + 7*15, 8 + 7*15, 6 + 8*15, 8 + 8*15} {
		if !b.VerticalWalls[i] {
			t.Fatalf("vertical center wall %d missing", i)
		}
	}
	for _, i := range []int{7 + 6*16, 8 + 6*16, 7 + 8*16, 8 + 8*16} {
		if !b.HorizontalWalls[i] {
			t.Fatalf("horizontal center wall %d missing", i)
		}
	}
	center := 0
	for tile := 0; tile < b.Cells(); tile++ {
		if b.IsCenterTile(tile) {
			center++
			x, y := tile%16, tile/16
			if x < 7 || x > 8 || y < 7 || y > 8 {
				t.Fatalf("tile %d reported as center", tile)
			}
		}
	}
	if center != 4 {
		t.Fatalf("%d center tiles, want 4", center)
	}
}

func TestGenerateEdgeStubs(t *testing.T) {
	b, err := Generate(16, 16, rng.NewSeeded(11))
	if err != nil {
		t.Fatal(err)
	}
	inRange := func(walls []bool, idx func(k int) int) int {
		n := 0
		for _, r := range DefaultEdgeRanges {
			for k := r.Lo; k < r.Hi; k++ {
				if walls[idx(k)] {
					n++
				}
			}
		}
		return n
	}
	if n := inRange(b.HorizontalWalls, func(k int) int { return k * 16 }); n < 2 {
		t.Fatalf("left column has %d stubs, want at least 2", n)
	}
	if n := inRange(b.HorizontalWalls, func(k int) int { return k*16 + 15 }); n < 2 {
		t.Fatalf("right column has %d stubs, want at least 2", n)
	}
	if n := inRange(b.VerticalWalls, func(k int) int { return k }); n < 2 {
		t.Fatalf("top row has %d stubs, want at least 2", n)
	}
	if n := inRange(b.VerticalWalls, func(k int) int { return k + 15*15 }); n < 2 {
		t.Fatalf("bottom row has %d stubs, want at least 2", n)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, _ := Generate(16, 16, rng.NewSeeded(99))
	b, _ := Generate(16, 16, rng.NewSeeded(99))
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("equal seeds produced different boards")
	}
}

func TestGenerateInvalidDimensions(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"too narrow", 3, 16},
		{"too short", 16, 2},
		{"edge range does not fit", 10, 16},
		{"too crowded", 13, 13},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(tc.w, tc.h, rng.NewSeeded(1))
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Fatalf("Generate(%d, %d) err = %v, want ErrInvalidDimensions", tc.w, tc.h, err)
			}
		})
	}
}

func TestGenerateCustomRanges(t *testing.T) {
	g := &Generator{Source: rng.NewSeeded(5), Obstacles: 2, EdgeRanges: [2]Range{{1, 2}, {2, 4}}}
	b, err := g.Generate(8, 6)
	if err != nil {
		t.Fatal(err)
	}
	if b.Width != 8 || b.Height() != 6 {
		t.Fatalf("got %dx%d", b.Width, b.Height())
	}
	if err := b.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestResolveStopsAtEdges(t *testing.T) {
	b := emptyBoard(5, 5)
	pos := TokenPositions{12, 0, 4, 20, 24} // red in the middle, others in corners

	cases := []struct {
		dir  Direction
		want int
	}{
		{Up, 2},
		{Down, 22},
		{Left, 10},
		{Right, 14},
	}
	for _, tc := range cases {
		got, err := Resolve(b, pos, Red, tc.dir)
		if err != nil {
			t.Fatal(err)
		}
		if got[Red] != tc.want {
			t.Fatalf("%s: red at %d, want %d", tc.dir, got[Red], tc.want)
		}
		for tok := Yellow; tok < NumTokens; tok++ {
			if got[tok] != pos[tok] {
				t.Fatalf("%s: token %d moved", tc.dir, tok)
			}
		}
	}
	if pos[Red] != 12 {
		t.Fatalf("input positions were mutated")
	}
}

func TestResolveStopsAtWalls(t *testing.T) {
	b := emptyBoard(5, 5)
	b.HorizontalWalls[0*5+2] = true // between (2,0) and (2,1)
	b.HorizontalWalls[3*5+2] = true // between (2,3) and (2,4)
	b.VerticalWalls[2*4+0] = true   // between (0,2) and (1,2)
	b.VerticalWalls[2*4+3] = true   // between (3,2) and (4,2)
	pos := TokenPositions{12, 0, 4, 20, 24}

	want := map[Direction]int{Up: 7, Down: 17, Left: 11, Right: 13}
	for dir, cell := range want {
		got, err := b.Move(pos, Red, dir)
		if err != nil {
			t.Fatal(err)
		}
		if got[Red] != cell {
			t.Fatalf("%s: red at %d, want %d", dir, got[Red], cell)
		}
	}
}

func TestResolveStopsBeforeTokens(t *testing.T) {
	b := emptyBoard(5, 5)
	pos := TokenPositions{10, 14, 2, 22, 0}

	got, _ := Resolve(b, pos, Red, Right) // yellow at (4,2)
	if got[Red] != 13 {
		t.Fatalf("red right = %d, want 13", got[Red])
	}
	got, _ = Resolve(b, pos, Green, Down) // blue at (2,4)
	if got[Green] != 17 {
		t.Fatalf("green down = %d, want 17", got[Green])
	}
	got, _ = Resolve(b, pos, Black, Down) // red at (0,2)
	if got[Black] != 5 {
		t.Fatalf("black down = %d, want 5", got[Black])
	}
}

func TestResolveNoOp(t *testing.T) {
	b := emptyBoard(5, 5)
	b.VerticalWalls[0] = true
	pos := TokenPositions{0, 1, 2, 3, 4}

	for _, tc := range []struct {
		token int
		dir   Direction
	}{
		{Red, Up}, {Red, Left}, {Red, Right}, {Yellow, Left}, {Black, Right},
	} {
		got, err := Resolve(b, pos, tc.token, tc.dir)
		if err != nil {
			t.Fatal(err)
		}
		if got != pos {
			t.Fatalf("token %d %s should be a no-op, got %v", tc.token, tc.dir, got)
		}
	}
}

func TestResolveIdempotentAndMonotone(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		b, err := Generate(16, 16, rng.NewSeeded(seed))
		if err != nil {
			t.Fatal(err)
		}
		src := rng.NewSeeded(seed + 1000)
		pos := b.InitialPositions
		for step := 0; step < 200; step++ {
			token := src.Uniform(0, NumTokens)
			dir := []Direction{Up, Down, Left, Right}[src.Uniform(0, 4)]
			next, err := Resolve(b, pos, token, dir)
			if err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
			again, _ := Resolve(b, next, token, dir)
			if again != next {
				t.Fatalf("seed %d step %d: repeated %s moved again", seed, step, dir)
			}
			ox, oy := pos[token]%16, pos[token]/16
			nx, ny := next[token]%16, next[token]/16
			switch dir {
			case Up:
				if nx != ox || ny > oy {
					t.Fatalf("up moved from (%d,%d) to (%d,%d)", ox, oy, nx, ny)
				}
			case Down:
				if nx != ox || ny < oy {
					t.Fatalf("down moved from (%d,%d) to (%d,%d)", ox, oy, nx, ny)
				}
			case Left:
				if ny != oy || nx > ox {
					t.Fatalf("left moved from (%d,%d) to (%d,%d)", ox, oy, nx, ny)
				}
			case Right:
				if ny != oy || nx < ox {
					t.Fatalf("right moved from (%d,%d) to (%d,%d)", ox, oy, nx, ny)
				}
			}
			pos = next
		}
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	b := emptyBoard(5, 5)
	pos := TokenPositions{0, 1, 2, 3, 4}
	if _, err := Resolve(b, pos, 5, Up); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token 5: %v", err)
	}
	if _, err := Resolve(b, pos, Red, Direction("north")); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("direction north: %v", err)
	}
	if _, err := Resolve(b, TokenPositions{0, 1, 2, 3, 25}, Red, Up); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("out of range position: %v", err)
	}
}

func TestValidate(t *testing.T) {
	good := emptyBoard(4, 3)
	if err := good.Validate(); err != nil {
		t.Fatalf("valid board rejected: %v", err)
	}
	bad := emptyBoard(4, 3)
	bad.VerticalWalls = bad.VerticalWalls[:5]
	if err := bad.Validate(); !errors.Is(err, ErrInvalidBoard) {
		t.Fatalf("short vertical walls: %v", err)
	}
	dup := emptyBoard(4, 3)
	dup.InitialPositions = TokenPositions{0, 0, 1, 2, 3}
	if err := dup.Validate(); !errors.Is(err, ErrInvalidBoard) {
		t.Fatalf("duplicate positions: %v", err)
	}
}

func TestBoardJSON(t *testing.T) {
	b := emptyBoard(4, 3)
	b.HorizontalWalls[1] = true
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	_ = json.Unmarshal(raw, &m)
	for _, k := range []string{"width", "horizontal_walls", "vertical_walls", "initial_positions"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %s", k, raw)
		}
	}
	var back Board
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Height() != 3 || !back.HorizontalWalls[1] {
		t.Fatalf("round trip lost data: %+v", back)
	}
}

func TestParseHelpers(t *testing.T) {
	if tok, err := ParseToken("blue"); err != nil || tok != Blue {
		t.Fatalf("ParseToken(blue) = %d, %v", tok, err)
	}
	if tok, err := ParseToken("4"); err != nil || tok != Black {
		t.Fatalf("ParseToken(4) = %d, %v", tok, err)
	}
	if _, err := ParseToken("purple"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken(purple) err = %v", err)
	}
	if d, err := ParseDirection("left"); err != nil || d != Left {
		t.Fatalf("ParseDirection(left) = %q, %v", d, err)
	}
	var d Direction
	if err := json.Unmarshal([]byte(`"sideways"`), &d); err == nil {
		t.Fatalf("sideways should not decode")
	}
}
