package game

// Arena dimensions including the 1-cell out-of-bounds border.
// The playable pitch is x in [1, ArenaWidth-2], y in [1, ArenaHeight-2].
// End zones sit at x=1 (home scores here) and x=ArenaWidth-2.
const (
	ArenaWidth  = 28
	ArenaHeight = 17
)

// Square is a board coordinate. (0,0) is the top-left corner of the arena.
type Square struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Chebyshev distance (diagonal steps count as one).
func (s Square) Distance(o Square) int {
	dx := abs(s.X - o.X)
	dy := abs(s.Y - o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// ManhattanDistance returns the sum of the axis deltas.
func (s Square) ManhattanDistance(o Square) int {
	return abs(s.X-o.X) + abs(s.Y-o.Y)
}

// Adjacent reports whether o is one of the 8 neighbouring squares.
func (s Square) Adjacent(o Square) bool {
	return s.Distance(o) == 1
}

// OutOfBounds reports whether the square lies on or beyond the arena border.
func (s Square) OutOfBounds() bool {
	return s.X <= 0 || s.X >= ArenaWidth-1 || s.Y <= 0 || s.Y >= ArenaHeight-1
}

// InArena reports whether the square is inside the full arena grid,
// including the border.
func (s Square) InArena() bool {
	return s.X >= 0 && s.X < ArenaWidth && s.Y >= 0 && s.Y < ArenaHeight
}

// Index returns a stable scan-order index used for deterministic
// tie-breaking. Lower index sorts first.
func (s Square) Index() int {
	return s.Y*ArenaWidth + s.X
}

// Neighbors returns the adjacent squares in scan order. If pitchOnly is
// set, squares on the arena border are excluded.
func (s Square) Neighbors(pitchOnly bool) []Square {
	out := make([]Square, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := Square{X: s.X + dx, Y: s.Y + dy}
			if !n.InArena() {
				continue
			}
			if pitchOnly && n.OutOfBounds() {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
