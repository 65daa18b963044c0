package game

import (
	"fmt"
	"sync/atomic"
)

var stateCounter uint64

// ErrValidation marks structurally inconsistent game state. Wrap with
// context; callers test with errors.Is.
var ErrValidation = fmt.Errorf("invalid game state")

// GameState is the full decision state: both rosters, the ball, whose
// activation it is and where the procedure stack currently sits. It is
// a value that search clones freely, so every mutation path goes
// through Clone first.
type GameState struct {
	ID uint64 `json:"id"`

	Half     int  `json:"half"`
	Round    int  `json:"round"`
	GameOver bool `json:"game_over"`

	Weather Weather `json:"weather"`

	Home *Team `json:"home"`
	Away *Team `json:"away"`
	Ball *Ball `json:"ball"`

	Turn TurnState `json:"turn"`

	// Procedure drives action discovery: which decision the acting
	// side faces right now.
	Procedure       Procedure `json:"procedure"`
	ParentProcedure Procedure `json:"parent_procedure,omitempty"`

	CurrentTeamID  string `json:"current_team_id"`
	ActivePlayerID string `json:"active_player_id,omitempty"`

	// ScoringTeamID is set when Procedure is the touchdown terminal. It
	// can differ from CurrentTeamID: a chain push can shove the
	// defending carrier over their own line.
	ScoringTeamID string `json:"scoring_team_id,omitempty"`

	BlockCtx *BlockContext `json:"block_ctx,omitempty"`
}

// NewGameState assembles a fresh state at the start of a turn for
// teamID and assigns it an ID.
func NewGameState(home, away *Team, ball *Ball, teamID string) *GameState {
	return &GameState{
		ID:            atomic.AddUint64(&stateCounter, 1),
		Half:          1,
		Round:         1,
		Weather:       WeatherNice,
		Home:          home,
		Away:          away,
		Ball:          ball,
		Turn:          DefaultTurnState(),
		Procedure:     ProcTurn,
		CurrentTeamID: teamID,
	}
}

// Clone deep-copies the state and assigns the copy a fresh ID. Teams,
// players, ball and block context are all duplicated; nothing in the
// copy aliases the original.
func (s *GameState) Clone() *GameState {
	out := *s
	out.ID = atomic.AddUint64(&stateCounter, 1)
	out.Home = s.Home.Clone()
	out.Away = s.Away.Clone()
	out.Ball = s.Ball.Clone()
	out.BlockCtx = s.BlockCtx.Clone()
	return &out
}

// CurrentTeam returns the team whose turn it is.
func (s *GameState) CurrentTeam() *Team { return s.TeamByID(s.CurrentTeamID) }

// OpponentTeam returns the side not currently acting.
func (s *GameState) OpponentTeam() *Team {
	if s.CurrentTeamID == s.Home.ID {
		return s.Away
	}
	return s.Home
}

// TeamByID resolves home or away by ID, nil if unknown.
func (s *GameState) TeamByID(id string) *Team {
	switch id {
	case s.Home.ID:
		return s.Home
	case s.Away.ID:
		return s.Away
	}
	return nil
}

// OpponentOf returns the team opposing teamID.
func (s *GameState) OpponentOf(teamID string) *Team {
	if teamID == s.Home.ID {
		return s.Away
	}
	return s.Home
}

// IsHomeTeam reports whether teamID is the home side.
func (s *GameState) IsHomeTeam(teamID string) bool { return teamID == s.Home.ID }

// ActivePlayer returns the player currently activated, nil when the
// procedure is turn-level.
func (s *GameState) ActivePlayer() *Player {
	if s.ActivePlayerID == "" {
		return nil
	}
	return s.PlayerByID(s.ActivePlayerID)
}

// PlayerByID searches both rosters.
func (s *GameState) PlayerByID(id string) *Player {
	if p := s.Home.PlayerByID(id); p != nil {
		return p
	}
	return s.Away.PlayerByID(id)
}

// PlayerAt returns the player occupying sq, nil for an empty square.
func (s *GameState) PlayerAt(sq Square) *Player {
	for _, t := range []*Team{s.Home, s.Away} {
		for _, p := range t.Players {
			if p.Position != nil && *p.Position == sq {
				return p
			}
		}
	}
	return nil
}

// TeamOf returns the team a player belongs to.
func (s *GameState) TeamOf(p *Player) *Team {
	if s.Home.PlayerByID(p.ID) != nil {
		return s.Home
	}
	return s.Away
}

// AdjacentPlayers returns players of team standing next to sq, in
// roster order so discovery stays deterministic.
func (s *GameState) AdjacentPlayers(sq Square, team *Team) []*Player {
	var out []*Player
	for _, p := range team.Players {
		if p.Standing() && p.Position != nil && p.Position.Adjacent(sq) {
			out = append(out, p)
		}
	}
	return out
}

// AdjacentOpponents returns standing opponents of p next to its square.
func (s *GameState) AdjacentOpponents(p *Player) []*Player {
	if p.Position == nil {
		return nil
	}
	opp := s.OpponentOf(s.TeamOf(p).ID)
	return s.AdjacentPlayers(*p.Position, opp)
}

// TackleZonesAt counts standing players of team exerting a tackle zone
// on sq.
func (s *GameState) TackleZonesAt(sq Square, team *Team) int {
	n := 0
	for _, p := range team.Players {
		if p.Standing() && p.Position != nil && p.Position.Adjacent(sq) {
			n++
		}
	}
	return n
}

// BallPosition returns where the ball is, following the carrier when
// it is held.
func (s *GameState) BallPosition() *Square {
	if s.Ball == nil {
		return nil
	}
	return s.Ball.Position
}

// Carrier returns the player holding the ball, nil for a loose ball.
func (s *GameState) Carrier() *Player {
	if s.Ball == nil || !s.Ball.Carried || s.Ball.Position == nil {
		return nil
	}
	return s.PlayerAt(*s.Ball.Position)
}

// Validate checks structural consistency: players on distinct in-bounds
// squares, a carried ball co-located with a standing player, and a
// resolvable current team. All failures wrap ErrValidation.
func (s *GameState) Validate() error {
	if s.Home == nil || s.Away == nil {
		return fmt.Errorf("%w: missing team", ErrValidation)
	}
	if s.CurrentTeam() == nil {
		return fmt.Errorf("%w: current team %q not in game", ErrValidation, s.CurrentTeamID)
	}
	occupied := make(map[Square]string)
	for _, t := range []*Team{s.Home, s.Away} {
		for _, p := range t.Players {
			if p.Position == nil {
				continue
			}
			if p.Position.OutOfBounds() {
				return fmt.Errorf("%w: player %s off pitch at (%d,%d)", ErrValidation, p.ID, p.Position.X, p.Position.Y)
			}
			if other, ok := occupied[*p.Position]; ok {
				return fmt.Errorf("%w: players %s and %s share (%d,%d)", ErrValidation, other, p.ID, p.Position.X, p.Position.Y)
			}
			occupied[*p.Position] = p.ID
		}
	}
	if s.Ball != nil && s.Ball.Carried {
		if s.Ball.Position == nil {
			return fmt.Errorf("%w: carried ball without position", ErrValidation)
		}
		c := s.PlayerAt(*s.Ball.Position)
		if c == nil || !c.Standing() {
			return fmt.Errorf("%w: carried ball at (%d,%d) has no standing carrier", ErrValidation, s.Ball.Position.X, s.Ball.Position.Y)
		}
	}
	if s.ActivePlayerID != "" && s.ActivePlayer() == nil {
		return fmt.Errorf("%w: active player %q not in game", ErrValidation, s.ActivePlayerID)
	}
	return nil
}
