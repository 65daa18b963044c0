package bench

import (
	"fmt"

	"github.com/gridbowl/gridbowl/game"
)

// Scenario is a named representative state used for performance
// measurement. States are rebuilt on every call so runs never share
// mutable fixtures.
type Scenario struct {
	Name  string
	State *game.GameState
}

// Scenarios returns the standard benchmark positions, covering the
// regimes that stress different parts of the engine: open movement,
// dense contact, and scoring pressure.
func Scenarios() ([]Scenario, error) {
	builders := []struct {
		name  string
		build func() *game.GameState
	}{
		{"open_field", openField},
		{"scrum", scrum},
		{"scoring_threat", scoringThreat},
		{"cage", cage},
	}
	out := make([]Scenario, 0, len(builders))
	for _, b := range builders {
		s := b.build()
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", b.name, err)
		}
		out = append(out, Scenario{Name: b.name, State: s})
	}
	return out, nil
}

func benchPlayer(id string, x, y int, skills ...game.Skill) *game.Player {
	return &game.Player{
		ID: id, Role: game.RoleLineman, Skills: skills,
		MA: 6, ST: 3, AG: 3, AV: 8,
		State:    game.PlayerState{Up: true},
		Position: &game.Square{X: x, Y: y},
	}
}

func stateOf(homePlayers, awayPlayers []*game.Player, ball *game.Ball) *game.GameState {
	home := &game.Team{ID: "home", Players: homePlayers, Rerolls: 2}
	away := &game.Team{ID: "away", Players: awayPlayers, Rerolls: 2}
	return game.NewGameState(home, away, ball, "home")
}

// openField spreads both teams out with a loose ball at midfield.
func openField() *game.GameState {
	var home, away []*game.Player
	for i := 0; i < 6; i++ {
		home = append(home, benchPlayer(fmt.Sprintf("h%d", i+1), 8, 3+2*i))
		away = append(away, benchPlayer(fmt.Sprintf("a%d", i+1), 19, 3+2*i))
	}
	return stateOf(home, away, &game.Ball{Position: &game.Square{X: 13, Y: 8}})
}

// scrum packs both lines into contact at the line of scrimmage.
func scrum() *game.GameState {
	var home, away []*game.Player
	for i := 0; i < 6; i++ {
		home = append(home, benchPlayer(fmt.Sprintf("h%d", i+1), 13, 5+i, game.SkillBlock))
		away = append(away, benchPlayer(fmt.Sprintf("a%d", i+1), 14, 5+i))
	}
	return stateOf(home, away, &game.Ball{Position: &game.Square{X: 10, Y: 8}})
}

// scoringThreat puts a home carrier three squares from the end zone with
// two defenders closing in.
func scoringThreat() *game.GameState {
	home := []*game.Player{
		benchPlayer("h1", 4, 8, game.SkillDodge),
		benchPlayer("h2", 6, 6),
		benchPlayer("h3", 6, 10),
	}
	away := []*game.Player{
		benchPlayer("a1", 3, 7),
		benchPlayer("a2", 5, 9),
		benchPlayer("a3", 8, 8),
	}
	return stateOf(home, away, &game.Ball{Position: &game.Square{X: 4, Y: 8}, Carried: true})
}

// cage surrounds the home carrier with teammates while the defense
// presses the corners.
func cage() *game.GameState {
	home := []*game.Player{
		benchPlayer("h1", 16, 8), // carrier
		benchPlayer("h2", 15, 7),
		benchPlayer("h3", 17, 7),
		benchPlayer("h4", 15, 9),
		benchPlayer("h5", 17, 9),
	}
	away := []*game.Player{
		benchPlayer("a1", 14, 6),
		benchPlayer("a2", 18, 6),
		benchPlayer("a3", 14, 10),
		benchPlayer("a4", 18, 10),
		benchPlayer("a5", 16, 6),
	}
	return stateOf(home, away, &game.Ball{Position: &game.Square{X: 16, Y: 8}, Carried: true})
}
