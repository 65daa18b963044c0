package game

// Procedure marks which phase of the turn state machine the game is in.
// Action discovery dispatches on it, and the search treats EndTurn,
// Turnover and Touchdown as horizon states.
type Procedure string

const (
	ProcTurn        Procedure = "TURN"
	ProcMoveAction  Procedure = "MOVE_ACTION"
	ProcBlitzAction Procedure = "BLITZ_ACTION"
	ProcBlockAction Procedure = "BLOCK_ACTION"
	ProcPush        Procedure = "PUSH"
	ProcFollowUp    Procedure = "FOLLOW_UP"
	ProcEndTurn     Procedure = "END_TURN"
	ProcTurnover    Procedure = "TURNOVER"
	ProcTouchdown   Procedure = "TOUCHDOWN"
)

// Weather affects movement risk. Only blizzard matters to the search core
// (it raises the go-for-it target); the remaining kinds are carried for the
// evaluator's feature planes.
type Weather string

const (
	WeatherNice           Weather = "NICE"
	WeatherVerySunny      Weather = "VERY_SUNNY"
	WeatherPouringRain    Weather = "POURING_RAIN"
	WeatherBlizzard       Weather = "BLIZZARD"
	WeatherSwelteringHeat Weather = "SWELTERING_HEAT"
)

// TurnState tracks the once-per-turn resources of the acting team.
type TurnState struct {
	Blitz            bool `json:"blitz"`
	QuickSnap        bool `json:"quick_snap"`
	BlitzAvailable   bool `json:"blitz_available"`
	PassAvailable    bool `json:"pass_available"`
	FoulAvailable    bool `json:"foul_available"`
	HandoffAvailable bool `json:"handoff_available"`
}

// DefaultTurnState returns the resource set at the start of a team turn.
func DefaultTurnState() TurnState {
	return TurnState{
		BlitzAvailable:   true,
		PassAvailable:    true,
		FoulAvailable:    true,
		HandoffAvailable: true,
	}
}

// PushChainItem records one link of a chain push: attacker shoves defender
// toward Position (nil until the pushing side picks a square).
type PushChainItem struct {
	Attacker string  `json:"attacker"`
	Defender string  `json:"defender"`
	Position *Square `json:"position,omitempty"`
}

// BlockContext carries the in-flight block from the dice roll through push
// resolution and follow-up.
type BlockContext struct {
	Attacker  string          `json:"attacker"`
	Defender  string          `json:"defender"`
	Position  Square          `json:"position"`
	KnockDown bool            `json:"knock_down"`
	PushChain []PushChainItem `json:"push_chain"`
}

func (c *BlockContext) Clone() *BlockContext {
	if c == nil {
		return nil
	}
	out := *c
	out.PushChain = make([]PushChainItem, len(c.PushChain))
	for i, item := range c.PushChain {
		out.PushChain[i] = item
		if item.Position != nil {
			pos := *item.Position
			out.PushChain[i].Position = &pos
		}
	}
	return &out
}
