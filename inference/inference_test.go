package inference

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/gridbowl/gridbowl/game"
)

func testState() *game.GameState {
	home := &game.Team{ID: "home", Rerolls: 2}
	away := &game.Team{ID: "away", Rerolls: 2}
	home.Players = append(home.Players, &game.Player{
		ID: "h1", MA: 6, ST: 3, AG: 3, AV: 8,
		Skills:   []game.Skill{game.SkillBlock},
		State:    game.PlayerState{Up: true},
		Position: &game.Square{X: 10, Y: 8},
	})
	away.Players = append(away.Players, &game.Player{
		ID: "a1", MA: 7, ST: 2, AG: 4, AV: 7,
		State:    game.PlayerState{Up: true},
		Position: &game.Square{X: 15, Y: 8},
	})
	ball := &game.Ball{Position: &game.Square{X: 10, Y: 8}, Carried: true}
	return game.NewGameState(home, away, ball, "home")
}

func randomState(r *rand.Rand) *game.GameState {
	home := &game.Team{ID: "home", Rerolls: r.Intn(4)}
	away := &game.Team{ID: "away", Rerolls: r.Intn(4)}
	for i := 0; i < 11; i++ {
		home.Players = append(home.Players, &game.Player{
			ID: string(rune('a' + i)), MA: 4 + r.Intn(5), ST: 1 + r.Intn(5),
			AG: 1 + r.Intn(5), AV: 7 + r.Intn(3),
			State:    game.PlayerState{Up: r.Intn(4) != 0},
			Position: &game.Square{X: 1 + r.Intn(game.ArenaWidth-2), Y: 1 + r.Intn(game.ArenaHeight-2)},
		})
		away.Players = append(away.Players, &game.Player{
			ID: string(rune('A' + i)), MA: 4 + r.Intn(5), ST: 1 + r.Intn(5),
			AG: 1 + r.Intn(5), AV: 7 + r.Intn(3),
			State:    game.PlayerState{Up: r.Intn(4) != 0},
			Position: &game.Square{X: 1 + r.Intn(game.ArenaWidth-2), Y: 1 + r.Intn(game.ArenaHeight-2)},
		})
	}
	ball := &game.Ball{Position: &game.Square{X: 1 + r.Intn(game.ArenaWidth-2), Y: 1 + r.Intn(game.ArenaHeight-2)}}
	return game.NewGameState(home, away, ball, "home")
}

func TestEncode_Size(t *testing.T) {
	s := testState()
	if got := len(EncodeSpatial(s)); got != SpatialSize {
		t.Fatalf("spatial size=%d want %d", got, SpatialSize)
	}
	if got := len(EncodeNonSpatial(s)); got != NonSpatialFeatures {
		t.Fatalf("non-spatial size=%d want %d", got, NonSpatialFeatures)
	}
	if got := len(Encode(s)); got != InputSize {
		t.Fatalf("input size=%d want %d", got, InputSize)
	}
}

func TestEncode_BallAndPlayerPlanes(t *testing.T) {
	s := testState()
	spatial := EncodeSpatial(s)

	ballIdx := 10*BoardHeight + 8
	if spatial[ballIdx] != 1.0 {
		t.Error("ball plane not set at carrier square")
	}

	layerSize := BoardWidth * BoardHeight
	homeBase := 1 * layerSize
	if spatial[homeBase+ballIdx] != 1.0 {
		t.Error("home occupancy plane not set")
	}
	if got := spatial[homeBase+planeMA*layerSize+ballIdx]; got != 6.0 {
		t.Errorf("home MA plane=%v want 6", got)
	}
	if got := spatial[homeBase+planeSkillBlock*layerSize+ballIdx]; got != 1.0 {
		t.Errorf("home block skill plane=%v want 1", got)
	}

	awayBase := (1 + planesPerTeam) * layerSize
	awayIdx := 15*BoardHeight + 8
	if spatial[awayBase+awayIdx] != 1.0 {
		t.Error("away occupancy plane not set")
	}
}

func TestEncode_NonSpatialFeatures(t *testing.T) {
	s := testState()
	s.Home.Score = 2
	s.Weather = game.WeatherBlizzard
	s.Turn.PassAvailable = false

	f := EncodeNonSpatial(s)
	if f[0] != 1.0 { // half
		t.Errorf("half=%v", f[0])
	}
	if f[3] != 2.0 { // home score
		t.Errorf("home score=%v", f[3])
	}
	if f[7] != 0.0 { // pass available
		t.Errorf("pass available=%v", f[7])
	}
	if f[13] != 1.0 { // blizzard
		t.Errorf("blizzard flag=%v", f[13])
	}
}

func TestValueFromHomeScalar(t *testing.T) {
	cases := []struct {
		in   float64
		home float64
	}{
		{1.0, 1.0},
		{-1.0, 0.0},
		{0.0, 0.5},
		{2.5, 1.0}, // clamped
	}
	for _, c := range cases {
		v := valueFromHomeScalar(c.in)
		if math.Abs(v.Home()-c.home) > 1e-9 {
			t.Errorf("scalar %v: home=%v want %v", c.in, v.Home(), c.home)
		}
		if math.Abs(v.Home()+v.Away()-1.0) > 1e-9 {
			t.Errorf("scalar %v: sides sum to %v", c.in, v.Home()+v.Away())
		}
	}
}

func TestHeuristic_PrefersEndzoneProgress(t *testing.T) {
	h := NewHeuristic()
	ctx := context.Background()

	far := testState() // carrier at x=10
	near := testState()
	near.Home.PlayerByID("h1").Position = &game.Square{X: 3, Y: 8}
	near.Ball.Position = &game.Square{X: 3, Y: 8}

	vFar, err := h.Evaluate(ctx, far)
	if err != nil {
		t.Fatal(err)
	}
	vNear, _ := h.Evaluate(ctx, near)
	if vNear.Home() <= vFar.Home() {
		t.Fatalf("closer to end zone scored %v, further scored %v", vNear.Home(), vFar.Home())
	}
}

func TestHeuristic_Touchdown(t *testing.T) {
	h := NewHeuristic()
	s := testState()
	s.Procedure = game.ProcTouchdown
	s.ScoringTeamID = "home"

	v, err := h.Evaluate(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if v.Home() != 1.0 || v.Away() != 0.0 {
		t.Fatalf("touchdown value=%v want [1 0]", v)
	}
}

func TestLoad_ClosedErrors(t *testing.T) {
	cases := []struct {
		path    string
		backend Backend
	}{
		{"", BackendONNX},
		{"", BackendNative},
		{"model.onnx", Backend("magic")},
		{"/definitely/not/here.json", BackendNative},
	}
	for _, c := range cases {
		_, err := Load(c.path, c.backend)
		if !errors.Is(err, ErrPolicyUnavailable) {
			t.Errorf("Load(%q,%q) err=%v want ErrPolicyUnavailable", c.path, c.backend, err)
		}
	}
}

func TestLoad_Heuristic(t *testing.T) {
	ev, err := Load("", BackendHeuristic)
	if err != nil {
		t.Fatal(err)
	}
	defer ev.Close()
	if ev.Name() != "heuristic" {
		t.Fatalf("name=%q", ev.Name())
	}
}

func TestNativeConfig_InputSizeMismatch(t *testing.T) {
	_, err := NewNative(NativeConfig{InputSize: 42, HiddenLayers: []int{8}})
	if !errors.Is(err, ErrPolicyUnavailable) {
		t.Fatalf("err=%v want ErrPolicyUnavailable", err)
	}
}

func TestNative_EvaluateShape(t *testing.T) {
	n, err := NewNative(NativeConfig{InputSize: InputSize, HiddenLayers: []int{16, 8}})
	if err != nil {
		t.Fatal(err)
	}
	v, err := n.Evaluate(context.Background(), testState())
	if err != nil {
		t.Fatal(err)
	}
	for _, side := range v {
		if side < 0.0 || side > 1.0 {
			t.Fatalf("value out of range: %v", v)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	states := make([]*game.GameState, 256)
	for i := range states {
		states[i] = randomState(r)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Encode(states[i%len(states)])
	}
}

func BenchmarkHeuristicEvaluate(b *testing.B) {
	r := rand.New(rand.NewSource(2))
	states := make([]*game.GameState, 256)
	for i := range states {
		states[i] = randomState(r)
	}
	h := NewHeuristic()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.Evaluate(ctx, states[i%len(states)]); err != nil {
			b.Fatal(err)
		}
	}
}
