package game

import "fmt"

// ActionKind enumerates the action subset the search understands.
type ActionKind string

const (
	// Turn-level selections.
	ActionStartMove  ActionKind = "START_MOVE"
	ActionStartBlitz ActionKind = "START_BLITZ"
	ActionStartBlock ActionKind = "START_BLOCK"
	ActionEndTurn    ActionKind = "END_TURN"

	// Player-level actions.
	ActionMove          ActionKind = "MOVE"
	ActionStandUp       ActionKind = "STAND_UP"
	ActionBlock         ActionKind = "BLOCK"
	ActionEndPlayerTurn ActionKind = "END_PLAYER_TURN"

	// Block resolution.
	ActionPush     ActionKind = "PUSH"
	ActionFollowUp ActionKind = "FOLLOW_UP"
)

// Action is one legal move for the acting side. It carries exactly the
// data needed to apply it: the kind, the selected player (for turn-level
// selections), the target square (move destination, block victim, push
// square) and the resolved path for movement.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Player string     `json:"player,omitempty"`
	Target *Square    `json:"target,omitempty"`
	Path   *Path      `json:"-"`
}

// Key returns the identity of the action. Two actions with the same key
// are the same decision even if their attached paths differ, mirroring
// the duplicate-target guarantee of action discovery.
func (a Action) Key() string {
	if a.Target != nil {
		return fmt.Sprintf("%s/%s/%d,%d", a.Kind, a.Player, a.Target.X, a.Target.Y)
	}
	return fmt.Sprintf("%s/%s", a.Kind, a.Player)
}

// SuccessProbability returns the chance the action resolves as intended.
// Only path-bound movement is risky; everything else either always
// succeeds or resolves through its own outcome distribution.
func (a Action) SuccessProbability() float64 {
	if a.Path != nil {
		return a.Path.Prob
	}
	return 1.0
}

func (a Action) String() string {
	switch {
	case a.Target != nil && a.Player != "":
		return fmt.Sprintf("%s %s -> (%d,%d)", a.Kind, a.Player, a.Target.X, a.Target.Y)
	case a.Target != nil:
		return fmt.Sprintf("%s -> (%d,%d)", a.Kind, a.Target.X, a.Target.Y)
	case a.Player != "":
		return fmt.Sprintf("%s %s", a.Kind, a.Player)
	default:
		return string(a.Kind)
	}
}

// Path is a resolved movement plan produced by the pathfinder.
// Squares excludes the origin; Prob is the product of every per-step
// dodge and go-for-it roll along the route.
type Path struct {
	Squares     []Square `json:"squares"`
	Target      Square   `json:"target"`
	Prob        float64  `json:"prob"`
	MovesUsed   int      `json:"moves_used"`
	GFIsUsed    int      `json:"gfis_used"`
	PicksUpBall bool     `json:"picks_up_ball"`
}

// Len returns the number of steps in the path.
func (p *Path) Len() int { return len(p.Squares) }

// TotalCost returns movement points spent, go-for-its included.
func (p *Path) TotalCost() int { return p.MovesUsed + p.GFIsUsed }

func (p *Path) Clone() *Path {
	if p == nil {
		return nil
	}
	out := *p
	out.Squares = make([]Square, len(p.Squares))
	copy(out.Squares, p.Squares)
	return &out
}
