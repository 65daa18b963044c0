package inference

import "github.com/gridbowl/gridbowl/game"

// Feature encoding shared by every neural backend. The board becomes 27
// planes of 28x17 (ball occupancy plus 13 planes per team) and the
// scalar game context becomes 15 features. Plane layout is channel-major
// with x-major rows: index = layer*(W*H) + x*H + y.
const (
	BoardWidth  = game.ArenaWidth
	BoardHeight = game.ArenaHeight

	SpatialLayers      = 27
	NonSpatialFeatures = 15

	SpatialSize = SpatialLayers * BoardWidth * BoardHeight
	InputSize   = SpatialSize + NonSpatialFeatures
)

// Per-team plane offsets relative to the team's base layer.
const (
	planeOccupied = iota
	planeMA
	planeST
	planeAG
	planeAV
	planeUp
	planeUsed
	planeStunned
	planeSkillBlock
	planeSkillDodge
	planeSkillSureHands
	planeSkillCatch
	planeSkillPass
	planesPerTeam
)

// EncodeSpatial fills the 27 board planes for state.
func EncodeSpatial(state *game.GameState) []float32 {
	data := make([]float32, SpatialSize)

	if bp := state.BallPosition(); bp != nil && bp.InArena() {
		data[bp.X*BoardHeight+bp.Y] = 1.0
	}

	encodeTeam(state.Home, data, 1)
	encodeTeam(state.Away, data, 1+planesPerTeam)
	return data
}

func encodeTeam(team *game.Team, data []float32, base int) {
	layerSize := BoardWidth * BoardHeight
	for _, p := range team.Players {
		if p.Position == nil || !p.Position.InArena() {
			continue
		}
		cell := p.Position.X*BoardHeight + p.Position.Y
		set := func(plane int, v float32) {
			data[(base+plane)*layerSize+cell] = v
		}
		set(planeOccupied, 1.0)
		set(planeMA, float32(p.MA))
		set(planeST, float32(p.ST))
		set(planeAG, float32(p.AG))
		set(planeAV, float32(p.AV))
		set(planeUp, boolFeature(p.State.Up))
		set(planeUsed, boolFeature(p.State.Used))
		set(planeStunned, boolFeature(p.State.Stunned))
		set(planeSkillBlock, boolFeature(p.HasSkill(game.SkillBlock)))
		set(planeSkillDodge, boolFeature(p.HasSkill(game.SkillDodge)))
		set(planeSkillSureHands, boolFeature(p.HasSkill(game.SkillSureHands)))
		set(planeSkillCatch, boolFeature(p.HasSkill(game.SkillCatch)))
		set(planeSkillPass, boolFeature(p.HasSkill(game.SkillPass)))
	}
}

// EncodeNonSpatial fills the 15 scalar features for state.
func EncodeNonSpatial(state *game.GameState) []float32 {
	features := make([]float32, 0, NonSpatialFeatures)
	features = append(features,
		float32(state.Half),
		float32(state.Round),
		float32(state.Home.Rerolls),
		float32(state.Home.Score),
		float32(state.Away.Rerolls),
		float32(state.Away.Score),
		boolFeature(state.Turn.BlitzAvailable),
		boolFeature(state.Turn.PassAvailable),
		boolFeature(state.Turn.HandoffAvailable),
		boolFeature(state.Turn.FoulAvailable),
		boolFeature(state.Weather == game.WeatherNice),
		boolFeature(state.Weather == game.WeatherVerySunny),
		boolFeature(state.Weather == game.WeatherPouringRain),
		boolFeature(state.Weather == game.WeatherBlizzard),
		boolFeature(state.Weather == game.WeatherSwelteringHeat),
	)
	return features
}

// Encode returns the full flat input: spatial planes followed by the
// scalar features. The native backend consumes this directly.
func Encode(state *game.GameState) []float32 {
	out := make([]float32, 0, InputSize)
	out = append(out, EncodeSpatial(state)...)
	out = append(out, EncodeNonSpatial(state)...)
	return out
}

func boolFeature(b bool) float32 {
	if b {
		return 1.0
	}
	return 0.0
}
