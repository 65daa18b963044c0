package game

// Skill is a capability tag carried by a player. Skills modify pathfinding
// risk and block resolution but never change the set of action kinds.
type Skill string

const (
	SkillBlock     Skill = "BLOCK"
	SkillCatch     Skill = "CATCH"
	SkillDodge     Skill = "DODGE"
	SkillPass      Skill = "PASS"
	SkillSureHands Skill = "SURE_HANDS"
)

// Role is the player's position on the roster. It only affects default
// stat lines; rules code never branches on it.
type Role string

const (
	RoleBlitzer Role = "BLITZER"
	RoleCatcher Role = "CATCHER"
	RoleLineman Role = "LINEMAN"
	RoleThrower Role = "THROWER"
)

// PlayerState is the per-turn mutable part of a player.
type PlayerState struct {
	Up         bool `json:"up"`
	Used       bool `json:"used"`
	Moves      int  `json:"moves"`
	Stunned    bool `json:"stunned"`
	KnockedOut bool `json:"knocked_out"`
	HasBlocked bool `json:"has_blocked"`
}

// Player is one piece on the board. Position is nil while the player is in
// the reserves or removed from play.
type Player struct {
	ID       string      `json:"player_id"`
	Role     Role        `json:"role"`
	Skills   []Skill     `json:"skills"`
	MA       int         `json:"ma"`
	ST       int         `json:"st"`
	AG       int         `json:"ag"`
	AV       int         `json:"av"`
	State    PlayerState `json:"state"`
	Position *Square     `json:"position,omitempty"`
}

func (p *Player) HasSkill(s Skill) bool {
	for _, have := range p.Skills {
		if have == s {
			return true
		}
	}
	return false
}

// Stat accessors clamp to the legal 1..10 range so a corrupted stat line
// cannot produce negative movement or out-of-table lookups.

func (p *Player) GetMA() int { return clampStat(p.MA) }
func (p *Player) GetST() int { return clampStat(p.ST) }
func (p *Player) GetAG() int { return clampStat(p.AG) }
func (p *Player) GetAV() int { return clampStat(p.AV) }

// Standing reports whether the player is on the pitch, upright and able to
// act.
func (p *Player) Standing() bool {
	return p.Position != nil && p.State.Up && !p.State.Stunned && !p.State.KnockedOut
}

// Clone performs a deep copy of the player.
func (p *Player) Clone() *Player {
	out := *p
	if p.Position != nil {
		pos := *p.Position
		out.Position = &pos
	}
	if len(p.Skills) > 0 {
		out.Skills = make([]Skill, len(p.Skills))
		copy(out.Skills, p.Skills)
	}
	return &out
}

func clampStat(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// Team is an ordered roster. Order is significant: action discovery walks
// players in roster order so searches are reproducible.
type Team struct {
	ID      string    `json:"team_id"`
	Players []*Player `json:"players"`
	Rerolls int       `json:"rerolls"`
	Bribes  int       `json:"bribes"`
	Score   int       `json:"score"`
}

// PlayerByID returns the roster entry with the given id, or nil.
func (t *Team) PlayerByID(id string) *Player {
	for _, p := range t.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Clone performs a deep copy of the team.
func (t *Team) Clone() *Team {
	out := &Team{
		ID:      t.ID,
		Rerolls: t.Rerolls,
		Bribes:  t.Bribes,
		Score:   t.Score,
	}
	out.Players = make([]*Player, len(t.Players))
	for i, p := range t.Players {
		out.Players[i] = p.Clone()
	}
	return out
}

// Ball tracks the single game ball. Position is nil only while the ball is
// out of play. Carried means the player standing on Position holds it.
type Ball struct {
	Position *Square `json:"position,omitempty"`
	Carried  bool    `json:"is_carried"`
}

func (b *Ball) Clone() *Ball {
	if b == nil {
		return nil
	}
	out := *b
	if b.Position != nil {
		pos := *b.Position
		out.Position = &pos
	}
	return &out
}
