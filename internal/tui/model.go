// Package tui runs a SART session in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"sart-go/internal/sart"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
)

// frameInterval is how often the model polls the session. It is well under
// the 250 ms stimulus so every digit is drawn.
const frameInterval = 20 * time.Millisecond

type frameMsg time.Time

// Model is the root Bubble Tea model. It only reads the session through
// Snapshot and drives it through the session's entry points.
type Model struct {
	session *sart.Session
	keys    KeyMap

	width        int
	instructions string
	snap         sart.Snapshot
	lastResponse sart.Response

	bar      progress.Model
	spring   harmonica.Spring
	barPos   float64
	barSpeed float64
}

// New creates the model. markdown replaces the default instructions when
// not empty.
func New(session *sart.Session, markdown string) Model {
	if markdown == "" {
		markdown = Instructions
	}
	return Model{
		session:      session,
		keys:         DefaultKeyMap(),
		width:        80,
		instructions: renderMarkdown(markdown, 72),
		snap:         session.Snapshot(),
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spring:       harmonica.NewSpring(harmonica.FPS(int(time.Second/frameInterval)), 8.0, 1.0),
		lastResponse: sart.ResponseNoTrial,
	}
}

func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return frame()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-4, 60)
		return m, nil

	case frameMsg:
		m.snap = m.session.Snapshot()
		m.barPos, m.barSpeed = m.spring.Update(m.barPos, m.barSpeed, blockProgress(m.snap))
		return m, frame()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Respond):
		m.lastResponse = m.session.RespondNow()

	case key.Matches(msg, m.keys.Advance):
		switch m.snap.Phase {
		case sart.PhaseInstructions:
			m.session.Start()
		case sart.PhaseReadiness:
			m.session.BeginRealTest()
		case sart.PhaseBetweenRounds:
			m.session.AdvanceToNextRound()
		}

	case key.Matches(msg, m.keys.Reset):
		m.session.Reset()
		m.barPos, m.barSpeed = 0, 0
	}
	m.snap = m.session.Snapshot()
	return m, nil
}

// blockProgress is the completed share of the running block.
func blockProgress(s sart.Snapshot) float64 {
	n := s.TrialsInPhase()
	if n == 0 {
		return 0
	}
	return float64(s.Completed) / float64(n)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SART"))
	b.WriteString(dimStyle.Render("  " + m.phaseLabel()))
	b.WriteString("\n\n")

	switch m.snap.Phase {
	case sart.PhaseInstructions:
		b.WriteString(m.instructions)
	case sart.PhasePractice, sart.PhaseTest:
		b.WriteString(m.blockView())
	case sart.PhaseReadiness:
		b.WriteString("Practice complete.\n\n")
		b.WriteString(ResultTable([]string{"Practice"}, []sart.Result{m.snap.Practice}))
		b.WriteString("\n\nThe real test has no feedback. Press enter to begin round 1.")
	case sart.PhaseBetweenRounds:
		last := m.snap.Rounds[len(m.snap.Rounds)-1]
		fmt.Fprintf(&b, "Round %d of %d complete.\n\n", last.RoundNumber, m.snap.TotalRounds)
		b.WriteString(ResultTable([]string{fmt.Sprintf("Round %d", last.RoundNumber)}, []sart.Result{last.Result}))
		b.WriteString("\n\nTake a short break. Press enter to start the next round.")
	case sart.PhaseResults:
		b.WriteString(m.resultsView())
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("space respond • enter continue • r restart • q quit"))
	return b.String()
}

func (m Model) phaseLabel() string {
	switch m.snap.Phase {
	case sart.PhasePractice:
		return "practice"
	case sart.PhaseTest:
		return fmt.Sprintf("round %d of %d", m.snap.Round, m.snap.TotalRounds)
	case sart.PhaseBetweenRounds:
		return "break"
	default:
		return m.snap.Phase.String()
	}
}

func (m Model) blockView() string {
	var b strings.Builder
	if m.snap.Countdown != nil {
		b.WriteString(countdownStyle.Render(fmt.Sprintf("Starting in %d…", *m.snap.Countdown)))
		return b.String()
	}

	digit := " "
	if m.snap.Digit != nil {
		digit = fmt.Sprint(*m.snap.Digit)
	}
	b.WriteString(digitStyle.Render(digit))
	b.WriteString("\n")

	if m.snap.Phase == sart.PhasePractice {
		b.WriteString(feedbackView(m.snap.Feedback))
	}
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(clamp(m.barPos)))
	fmt.Fprintf(&b, "\n%s", dimStyle.Render(fmt.Sprintf("trial %d of %d", m.snap.Trial, m.snap.TrialsInPhase())))
	return b.String()
}

func feedbackView(f sart.Feedback) string {
	switch f {
	case sart.FeedbackCorrect:
		return feedbackStyle(ColorCorrect).Render("Correct")
	case sart.FeedbackCommission:
		return feedbackStyle(ColorCommission).Render("Don't press for 3")
	case sart.FeedbackOmission:
		return feedbackStyle(ColorOmission).Render("Too slow")
	default:
		return ""
	}
}

func (m Model) resultsView() string {
	labels := make([]string, 0, len(m.snap.Rounds)+1)
	results := make([]sart.Result, 0, len(m.snap.Rounds)+1)
	for _, r := range m.snap.Rounds {
		labels = append(labels, fmt.Sprintf("Round %d", r.RoundNumber))
		results = append(results, r.Result)
	}
	if m.snap.Overall != nil {
		labels = append(labels, "Overall")
		results = append(results, *m.snap.Overall)
	}
	return "Test complete.\n\n" + ResultTable(labels, results)
}
