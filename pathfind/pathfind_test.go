package pathfind

import (
	"math"
	"testing"

	"github.com/gridbowl/gridbowl/game"
)

func newTestState() *game.GameState {
	home := &game.Team{ID: "home", Rerolls: 3}
	home.Players = append(home.Players, &game.Player{
		ID: "player1", MA: 6, ST: 3, AG: 3, AV: 8,
		State:    game.PlayerState{Up: true},
		Position: &game.Square{X: 5, Y: 5},
	})
	away := &game.Team{ID: "away", Rerolls: 3}
	return game.NewGameState(home, away, nil, "home")
}

func addOpponentAt(s *game.GameState, sq game.Square, id string) {
	s.Away.Players = append(s.Away.Players, &game.Player{
		ID: id, MA: 6, ST: 3, AG: 3, AV: 8,
		State:    game.PlayerState{Up: true},
		Position: &sq,
	})
}

func mover(s *game.GameState) *game.Player { return s.Home.PlayerByID("player1") }

func TestNew_RequiresPosition(t *testing.T) {
	s := newTestState()
	mover(s).Position = nil
	if _, err := New(s, mover(s)); err == nil {
		t.Fatal("expected error for player without position")
	}
}

func TestFindAll_EmptyField(t *testing.T) {
	s := newTestState()
	pf, err := New(s, mover(s))
	if err != nil {
		t.Fatal(err)
	}
	paths := pf.FindAll()
	if len(paths) == 0 {
		t.Fatal("expected paths on empty field")
	}
	// No dodges anywhere, so every no-GFI path is certain.
	for _, p := range paths {
		if p.GFIsUsed == 0 && math.Abs(p.Prob-1.0) > 0.001 {
			t.Errorf("path to %v: prob=%v want 1.0", p.Target, p.Prob)
		}
	}
}

func TestFindAll_MaxDistance(t *testing.T) {
	s := newTestState()
	pf, _ := New(s, mover(s))
	origin := game.Square{X: 5, Y: 5}

	max := 0
	for _, p := range pf.FindAll() {
		if d := p.Target.Distance(origin); d > max {
			max = d
		}
	}
	// MA 6 plus 2 go-for-its.
	if max != 8 {
		t.Fatalf("max reach=%d want 8", max)
	}
}

func TestFindAll_GFIProbability(t *testing.T) {
	s := newTestState()
	pf, _ := New(s, mover(s))

	found := false
	for _, p := range pf.FindAll() {
		if p.GFIsUsed == 0 {
			continue
		}
		found = true
		want := math.Pow(5.0/6.0, float64(p.GFIsUsed))
		if math.Abs(p.Prob-want) > 0.001 {
			t.Errorf("path with %d GFIs: prob=%v want %v", p.GFIsUsed, p.Prob, want)
		}
	}
	if !found {
		t.Fatal("expected paths using GFI")
	}
}

func TestFindAll_DodgeRequired(t *testing.T) {
	s := newTestState()
	addOpponentAt(s, game.Square{X: 5, Y: 4}, "opp1")

	pf, _ := New(s, mover(s))
	dodging := 0
	for _, p := range pf.FindAll() {
		if p.Prob < 1.0 && p.GFIsUsed == 0 {
			dodging++
		}
	}
	if dodging == 0 {
		t.Fatal("expected paths requiring a dodge")
	}
}

func TestDodgeTarget_ClearDestination(t *testing.T) {
	s := newTestState()
	addOpponentAt(s, game.Square{X: 5, Y: 4}, "opp1")

	pf, _ := New(s, mover(s))
	// Leaving (5,5) in one tackle zone for an empty square: AG3 base 4,
	// +1 modifier, needs 5+ = 2/6.
	p := pf.FindTo(game.Square{X: 6, Y: 6})
	if p == nil {
		t.Fatal("no path to (6,6)")
	}
	if math.Abs(p.Prob-2.0/6.0) > 0.001 {
		t.Fatalf("dodge prob=%v want %v", p.Prob, 2.0/6.0)
	}
}

func TestFindTo_SpecificTarget(t *testing.T) {
	s := newTestState()
	pf, _ := New(s, mover(s))

	p := pf.FindTo(game.Square{X: 8, Y: 5})
	if p == nil {
		t.Fatal("no path to (8,5)")
	}
	if p.Len() != 3 {
		t.Fatalf("steps=%d want 3", p.Len())
	}
	if p.Target != (game.Square{X: 8, Y: 5}) {
		t.Fatalf("target=%v", p.Target)
	}
}

func TestFindTo_Unreachable(t *testing.T) {
	s := newTestState()
	pf, _ := New(s, mover(s))
	if p := pf.FindTo(game.Square{X: 20, Y: 5}); p != nil {
		t.Fatalf("expected no path, got %+v", p)
	}
}

func TestPaths_AvoidOccupiedSquares(t *testing.T) {
	s := newTestState()
	addOpponentAt(s, game.Square{X: 6, Y: 5}, "opp1")

	pf, _ := New(s, mover(s))
	if p := pf.FindTo(game.Square{X: 6, Y: 5}); p != nil {
		t.Fatal("pathed onto an occupied square")
	}
	if p := pf.FindTo(game.Square{X: 7, Y: 5}); p == nil {
		t.Fatal("expected path around the opponent")
	}
}

func TestPaths_SortedByProbability(t *testing.T) {
	s := newTestState()
	addOpponentAt(s, game.Square{X: 4, Y: 4}, "opp1")

	pf, _ := New(s, mover(s))
	paths := pf.FindAll()
	for i := 1; i < len(paths); i++ {
		if paths[i-1].Prob < paths[i].Prob {
			t.Fatalf("paths not sorted by prob: %v before %v", paths[i-1].Prob, paths[i].Prob)
		}
	}
}

func TestPaths_UniqueTargets(t *testing.T) {
	s := newTestState()
	pf, _ := New(s, mover(s))

	seen := make(map[game.Square]bool)
	for _, p := range pf.FindAll() {
		if seen[p.Target] {
			t.Fatalf("duplicate path to %v", p.Target)
		}
		seen[p.Target] = true
	}
}

func TestBallPickupFlag(t *testing.T) {
	s := newTestState()
	s.Ball = &game.Ball{Position: &game.Square{X: 7, Y: 5}, Carried: false}

	pf, _ := New(s, mover(s))
	p := pf.FindTo(game.Square{X: 7, Y: 5})
	if p == nil {
		t.Fatal("no path to ball")
	}
	if !p.PicksUpBall {
		t.Fatal("path ending on loose ball should flag pickup")
	}
}

func TestBlizzardRaisesGFITarget(t *testing.T) {
	s := newTestState()
	s.Weather = game.WeatherBlizzard

	pf, _ := New(s, mover(s))
	for _, p := range pf.FindAll() {
		if p.GFIsUsed != 1 {
			continue
		}
		// 4+ in a blizzard.
		if math.Abs(p.Prob-4.0/6.0) > 0.01 {
			t.Fatalf("blizzard GFI prob=%v want %v", p.Prob, 4.0/6.0)
		}
		return
	}
	t.Fatal("no single-GFI path found")
}

func TestMovesAlreadyUsed(t *testing.T) {
	s := newTestState()
	mover(s).State.Moves = 4

	pf, _ := New(s, mover(s))
	origin := game.Square{X: 5, Y: 5}
	for _, p := range pf.FindAll() {
		if d := p.Target.Distance(origin); d > 4 {
			t.Fatalf("reached distance %d with only 2 MA + 2 GFI left", d)
		}
	}
}

func TestPartialGFIAlreadyUsed(t *testing.T) {
	s := newTestState()
	mover(s).State.Moves = 7 // MA 6 fully spent plus one GFI

	pf, _ := New(s, mover(s))
	origin := game.Square{X: 5, Y: 5}
	for _, p := range pf.FindAll() {
		if d := p.Target.Distance(origin); d > 1 {
			t.Fatalf("one GFI left but reached distance %d", d)
		}
		if p.MovesUsed != 6 {
			t.Errorf("moves used=%d want 6", p.MovesUsed)
		}
		if p.GFIsUsed != 2 {
			t.Errorf("gfis used=%d want 2", p.GFIsUsed)
		}
	}
}

func TestExcessiveMovesUsed(t *testing.T) {
	s := newTestState()
	mover(s).State.Moves = 10

	pf, _ := New(s, mover(s))
	if paths := pf.FindAll(); len(paths) != 0 {
		t.Fatalf("expected no paths with movement exhausted, got %d", len(paths))
	}
}

func TestQuickSnap_SingleSquareNoDodge(t *testing.T) {
	s := newTestState()
	s.Turn.QuickSnap = true
	addOpponentAt(s, game.Square{X: 5, Y: 4}, "opp1")

	pf, _ := New(s, mover(s))
	paths := pf.FindAll()
	if len(paths) == 0 {
		t.Fatal("expected quick snap paths")
	}
	origin := game.Square{X: 5, Y: 5}
	for _, p := range paths {
		if p.Target.Distance(origin) != 1 {
			t.Fatalf("quick snap reached distance %d", p.Target.Distance(origin))
		}
		if p.Prob != 1.0 {
			t.Fatalf("quick snap step rolled dice: prob=%v", p.Prob)
		}
	}
}

func TestDeterministicOrder(t *testing.T) {
	s := newTestState()
	addOpponentAt(s, game.Square{X: 6, Y: 4}, "opp1")

	pf1, _ := New(s, mover(s))
	pf2, _ := New(s, mover(s))
	a := pf1.FindAll()
	b := pf2.FindAll()
	if len(a) != len(b) {
		t.Fatalf("path counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Target != b[i].Target || a[i].Prob != b[i].Prob {
			t.Fatalf("path %d differs: %v/%v vs %v/%v", i, a[i].Target, a[i].Prob, b[i].Target, b[i].Prob)
		}
	}
}

func TestFindAll_CostEqualsPathLength(t *testing.T) {
	s := newTestState()
	addOpponentAt(s, game.Square{X: 7, Y: 5}, "opp1")
	addOpponentAt(s, game.Square{X: 4, Y: 7}, "opp2")

	pf, _ := New(s, mover(s))
	paths := pf.FindAll()
	if len(paths) == 0 {
		t.Fatal("expected paths")
	}
	// A fresh mover spends exactly one movement point per square entered.
	for _, p := range paths {
		if p.TotalCost() != p.Len() {
			t.Errorf("path to %v: cost=%d len=%d", p.Target, p.TotalCost(), p.Len())
		}
	}

	// Movement already spent this activation counts toward the cost.
	mover(s).State.Moves = 2
	pf2, _ := New(s, mover(s))
	for _, p := range pf2.FindAll() {
		if p.TotalCost() != p.Len()+2 {
			t.Errorf("path to %v with 2 moves spent: cost=%d len=%d", p.Target, p.TotalCost(), p.Len())
		}
	}
}

func TestFindTo_ProbNonIncreasingWithDistance(t *testing.T) {
	s := newTestState()
	pf, _ := New(s, mover(s))

	prev := 1.0
	for k := 1; k <= 8; k++ {
		p := pf.FindTo(game.Square{X: 5 + k, Y: 5})
		if p == nil {
			t.Fatalf("no path to distance %d", k)
		}
		if p.Prob > prev+1e-9 {
			t.Errorf("distance %d: prob %v rose above %v", k, p.Prob, prev)
		}
		prev = p.Prob
	}
}

func TestFindAll_PrefixProbNeverBelowFullPath(t *testing.T) {
	s := newTestState()
	addOpponentAt(s, game.Square{X: 6, Y: 4}, "opp1")
	addOpponentAt(s, game.Square{X: 8, Y: 6}, "opp2")
	addOpponentAt(s, game.Square{X: 10, Y: 4}, "opp3")

	pf, _ := New(s, mover(s))
	checked := 0
	for _, p := range pf.FindAll() {
		if p.Len() < 2 || p.Prob >= 1.0 {
			continue
		}
		// Every prefix of a path is itself a path to its own square, so
		// extending a path can only keep or lower the best probability.
		for _, sq := range p.Squares[:p.Len()-1] {
			best := pf.FindTo(sq)
			if best == nil {
				t.Fatalf("no path to intermediate square %v", sq)
			}
			if best.Prob < p.Prob-1e-9 {
				t.Errorf("square %v: best prob %v below full path prob %v", sq, best.Prob, p.Prob)
			}
			checked++
		}
	}
	if checked == 0 {
		t.Fatal("no risky multi-step paths checked")
	}
}
