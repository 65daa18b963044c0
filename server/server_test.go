package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gridbowl/gridbowl/game"
	"github.com/gridbowl/gridbowl/inference"
	"github.com/gridbowl/gridbowl/search"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(inference.NewHeuristic(), search.Config{}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func testState(t *testing.T) *game.GameState {
	t.Helper()
	home := &game.Team{ID: "home", Players: []*game.Player{{
		ID: "h1", Role: game.RoleLineman, MA: 6, ST: 3, AG: 3, AV: 8,
		State:    game.PlayerState{Up: true},
		Position: &game.Square{X: 5, Y: 5},
	}}, Rerolls: 2}
	away := &game.Team{ID: "away", Players: []*game.Player{{
		ID: "a1", Role: game.RoleLineman, MA: 6, ST: 3, AG: 3, AV: 8,
		State:    game.PlayerState{Up: true},
		Position: &game.Square{X: 10, Y: 5},
	}}, Rerolls: 2}
	s := game.NewGameState(home, away, nil, "home")
	require.NoError(t, s.Validate())
	return s
}

func decide(t *testing.T, ts *httptest.Server, req DecideRequest) (*http.Response, DecideResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/decide", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out DecideResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestDecide(t *testing.T) {
	ts := testServer(t)

	resp, out := decide(t, ts, DecideRequest{
		State:  testState(t),
		Budget: BudgetSpec{Iterations: 50},
		Seed:   7,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, out.NoAction)
	require.NotNil(t, out.Action)
	require.Equal(t, 50, out.Iterations)
	require.NotEmpty(t, out.Actions)
}

func TestDecideDeterministicAcrossRequests(t *testing.T) {
	ts := testServer(t)
	req := DecideRequest{State: testState(t), Budget: BudgetSpec{Iterations: 80}, Seed: 3}

	_, a := decide(t, ts, req)
	_, b := decide(t, ts, req)
	require.Equal(t, a.Action.Key(), b.Action.Key())
	require.Equal(t, a.Actions, b.Actions)
}

func TestDecideRejectsInvalidState(t *testing.T) {
	ts := testServer(t)
	state := testState(t)
	state.CurrentTeamID = "nobody"

	resp, _ := decide(t, ts, DecideRequest{State: state, Budget: BudgetSpec{Iterations: 10}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecideRejectsBadBudget(t *testing.T) {
	ts := testServer(t)
	resp, _ := decide(t, ts, DecideRequest{
		State:  testState(t),
		Budget: BudgetSpec{Iterations: -5, MoveTimeMs: 100},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecideBadJSON(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Post(ts.URL+"/decide", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecideNoActionAtHorizon(t *testing.T) {
	ts := testServer(t)
	state := testState(t)
	state.Procedure = game.ProcEndTurn

	resp, out := decide(t, ts, DecideRequest{State: state, Budget: BudgetSpec{Iterations: 10}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, out.NoAction)
	require.Nil(t, out.Action)
}

func TestWebsocketReceivesDiagnostics(t *testing.T) {
	ts := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	decide(t, ts, DecideRequest{State: testState(t), Budget: BudgetSpec{Iterations: 20}, Seed: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out DecideResponse
	require.NoError(t, conn.ReadJSON(&out))
	require.Equal(t, 20, out.Iterations)
}
