// Command inspect is an interactive search explorer: it renders the
// board, runs a search on demand, lists root actions with their visit
// and value statistics, and lets you step the game forward action by
// action.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gridbowl/gridbowl/game"
	"github.com/gridbowl/gridbowl/inference"
	"github.com/gridbowl/gridbowl/rules"
	"github.com/gridbowl/gridbowl/search"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	homeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	awayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	ballStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("219")).Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// visibleActions caps the action list; the cursor stays within it so the
// selection is always on screen.
const visibleActions = 12

type searchDone struct {
	res *search.Result
	err error
}

type model struct {
	state     *game.GameState
	agent     *search.Search
	budget    search.Budget
	res       *search.Result
	cursor    int
	searching bool
	status    string
}

func (m model) Init() tea.Cmd {
	return m.runSearch()
}

func (m model) runSearch() tea.Cmd {
	state := m.state
	agent := m.agent
	budget := m.budget
	return func() tea.Msg {
		res, err := agent.Run(context.Background(), state, budget)
		return searchDone{res: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchDone:
		m.searching = false
		if msg.err != nil {
			m.status = fmt.Sprintf("search failed: %v", msg.err)
			return m, nil
		}
		m.res = msg.res
		m.cursor = 0
		if msg.res.NoAction {
			m.status = "no legal action: advance the procedure externally"
		} else {
			m.status = fmt.Sprintf("%d iterations, %d nodes, depth %d in %s",
				msg.res.Iterations, msg.res.Nodes, msg.res.Depth, msg.res.Elapsed)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.res != nil {
				limit := len(m.res.Actions)
				if limit > visibleActions {
					limit = visibleActions
				}
				if m.cursor < limit-1 {
					m.cursor++
				}
			}
		case "s":
			if !m.searching {
				m.searching = true
				m.status = "searching..."
				return m, m.runSearch()
			}
		case "enter":
			return m.applyCursor()
		}
	}
	return m, nil
}

// applyCursor applies the highlighted action and follows the most
// probable outcome branch, then searches the successor.
func (m model) applyCursor() (tea.Model, tea.Cmd) {
	if m.res == nil || m.res.NoAction || m.searching || len(m.res.Actions) == 0 {
		return m, nil
	}
	act := sortedStats(m.res)[m.cursor].Action
	out, err := rules.Apply(m.state, act)
	if err != nil {
		m.status = fmt.Sprintf("apply failed: %v", err)
		return m, nil
	}
	best := out.Branches[0]
	for _, b := range out.Branches[1:] {
		if b.Prob > best.Prob {
			best = b
		}
	}
	m.state = best.State
	m.res = nil
	if rules.IsTerminal(m.state) {
		m.status = fmt.Sprintf("terminal: %s", m.state.Procedure)
		return m, nil
	}
	m.searching = true
	m.status = fmt.Sprintf("applied %s (branch p=%.2f), searching...", act, best.Prob)
	return m, m.runSearch()
}

func sortedStats(res *search.Result) []search.ActionStats {
	stats := make([]search.ActionStats, len(res.Actions))
	copy(stats, res.Actions)
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Visits > stats[j].Visits })
	return stats
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gridbowl inspect"))
	b.WriteString("\n\n")
	b.WriteString(renderBoard(m.state))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("half %d round %d  %s to act  score %d-%d  %s\n\n",
		m.state.Half, m.state.Round, m.state.CurrentTeamID,
		m.state.Home.Score, m.state.Away.Score, m.state.Procedure))

	if m.res != nil && !m.res.NoAction {
		b.WriteString(fmt.Sprintf("root value %.3f over %d visits\n", m.res.Value, m.res.Visits))
		stats := sortedStats(m.res)
		shown := stats
		if len(shown) > visibleActions {
			shown = shown[:visibleActions]
		}
		for i, st := range shown {
			bar := visitBar(st.Visits, stats[0].Visits)
			line := fmt.Sprintf("%-38s %5d  %.3f %s", st.Action, st.Visits, st.Mean, bar)
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(stats) > len(shown) {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ... %d more\n", len(stats)-len(shown))))
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("j/k move  enter apply  s re-search  q quit"))
	b.WriteString("\n")
	return b.String()
}

func visitBar(visits, max int) string {
	if max == 0 {
		return ""
	}
	width := visits * 20 / max
	return strings.Repeat("█", width)
}

func renderBoard(s *game.GameState) string {
	var b strings.Builder
	for y := 0; y < game.ArenaHeight; y++ {
		for x := 0; x < game.ArenaWidth; x++ {
			sq := game.Square{X: x, Y: y}
			b.WriteString(cellAt(s, sq))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellAt(s *game.GameState, sq game.Square) string {
	if sq.OutOfBounds() {
		return borderStyle.Render("#")
	}
	if p := s.PlayerAt(sq); p != nil {
		glyph := "H"
		style := homeStyle
		if s.TeamOf(p) == s.Away {
			glyph = "A"
			style = awayStyle
		}
		if !p.State.Up {
			glyph = strings.ToLower(glyph)
		}
		return style.Render(glyph)
	}
	if pos := s.BallPosition(); pos != nil && *pos == sq {
		return ballStyle.Render("o")
	}
	if sq.X == 1 || sq.X == game.ArenaWidth-2 {
		return dimStyle.Render(":")
	}
	return dimStyle.Render(".")
}

func loadState(path string) (*game.GameState, error) {
	if path == "" {
		return demoState(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s game.GameState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func demoState() *game.GameState {
	mk := func(id string, x, y int) *game.Player {
		return &game.Player{
			ID: id, Role: game.RoleLineman, MA: 6, ST: 3, AG: 3, AV: 8,
			State:    game.PlayerState{Up: true},
			Position: &game.Square{X: x, Y: y},
		}
	}
	home := &game.Team{ID: "home", Rerolls: 2, Players: []*game.Player{
		mk("h1", 13, 7), mk("h2", 13, 8), mk("h3", 13, 9),
		mk("h4", 10, 5), mk("h5", 10, 11),
	}}
	away := &game.Team{ID: "away", Rerolls: 2, Players: []*game.Player{
		mk("a1", 14, 7), mk("a2", 14, 8), mk("a3", 14, 9),
		mk("a4", 17, 5), mk("a5", 17, 11),
	}}
	ball := &game.Ball{Position: &game.Square{X: 10, Y: 8}}
	return game.NewGameState(home, away, ball, "home")
}

func main() {
	var (
		statePath  = flag.String("state", "", "JSON game state to load (empty = demo position)")
		backend    = flag.String("backend", "heuristic", "evaluator backend: onnx, native or heuristic")
		modelPath  = flag.String("model", "", "path to the model artifact")
		iterations = flag.Int("iterations", 1000, "search iterations per decision")
		seed       = flag.Int64("seed", 1, "search random seed")
	)
	flag.Parse()

	state, err := loadState(*statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load state: %v\n", err)
		os.Exit(1)
	}
	eval, err := inference.Load(*modelPath, inference.Backend(*backend))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load evaluator: %v\n", err)
		os.Exit(1)
	}
	defer eval.Close()

	m := model{
		state:     state,
		agent:     search.New(eval, search.Config{Seed: *seed}),
		budget:    search.Budget{Iterations: *iterations},
		searching: true,
		status:    "searching...",
	}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}
