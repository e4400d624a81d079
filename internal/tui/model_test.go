package tui

import (
	"strings"
	"testing"
	"time"

	"sart-go/internal/sart"

	tea "github.com/charmbracelet/bubbletea"
)

var testEpoch = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, rounds int) (Model, *sart.Loop) {
	t.Helper()
	loop := sart.NewManualLoop(testEpoch)
	s := sart.NewSession(loop, sart.Options{Rounds: rounds, Seed: 7})
	return New(s, "# Test instructions"), loop
}

func press(m Model, msg tea.KeyMsg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func tick(m Model) Model {
	next, _ := m.Update(frameMsg(time.Now()))
	return next.(Model)
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	reset = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
)

func TestInstructionsView(t *testing.T) {
	m, _ := newTestModel(t, 1)
	if !strings.Contains(m.View(), "Test instructions") {
		t.Errorf("View() does not show the instructions:\n%s", m.View())
	}
}

func TestEnterStartsPracticeAndSpaceResponds(t *testing.T) {
	m, loop := newTestModel(t, 1)

	m = press(m, enter)
	if m.snap.Phase != sart.PhasePractice {
		t.Fatalf("phase after enter = %s, want practice", m.snap.Phase)
	}
	if !strings.Contains(m.View(), "Starting in 3") {
		t.Errorf("countdown not shown:\n%s", m.View())
	}

	m = press(m, space)
	if m.lastResponse != sart.ResponseNoTrial {
		t.Errorf("response during countdown = %s, want no_trial", m.lastResponse)
	}

	loop.Advance(sart.CountdownFrom*sart.CountdownStep + 100*time.Millisecond)
	m = tick(m)
	if m.snap.Digit == nil {
		t.Fatal("no digit after the countdown")
	}
	m = press(m, space)
	if m.lastResponse != sart.ResponseAccepted {
		t.Errorf("response inside the window = %s, want accepted", m.lastResponse)
	}
	if !strings.Contains(m.View(), "trial 1 of 10") {
		t.Errorf("trial counter missing:\n%s", m.View())
	}
}

func TestEnterWalksThroughPhases(t *testing.T) {
	m, loop := newTestModel(t, 1)
	m = press(m, enter)

	loop.Advance(sart.CountdownFrom * sart.CountdownStep)
	for i := 0; i < sart.PracticeTrials; i++ {
		loop.Advance(sart.ResponseWindow + sart.InterTrialInterval)
	}
	m = tick(m)
	if m.snap.Phase != sart.PhaseReadiness {
		t.Fatalf("phase after practice = %s, want readiness", m.snap.Phase)
	}
	if !strings.Contains(m.View(), "Practice complete") {
		t.Errorf("readiness view:\n%s", m.View())
	}

	m = press(m, enter)
	if m.snap.Phase != sart.PhaseTest || m.snap.Round != 1 {
		t.Fatalf("after enter = %s round %d, want test round 1", m.snap.Phase, m.snap.Round)
	}

	loop.Advance(sart.CountdownFrom * sart.CountdownStep)
	for i := 0; i < sart.TrialsPerRound; i++ {
		loop.Advance(sart.ResponseWindow + sart.InterTrialInterval)
	}
	m = tick(m)
	if m.snap.Phase != sart.PhaseResults {
		t.Fatalf("phase after the only round = %s, want results", m.snap.Phase)
	}
	view := m.View()
	if !strings.Contains(view, "Round 1") || !strings.Contains(view, "Overall") {
		t.Errorf("results view:\n%s", view)
	}

	m = press(m, reset)
	if m.snap.Phase != sart.PhaseInstructions {
		t.Errorf("phase after reset = %s, want instructions", m.snap.Phase)
	}
}

func TestBlockProgress(t *testing.T) {
	tests := []struct {
		snap sart.Snapshot
		want float64
	}{
		{sart.Snapshot{Phase: sart.PhasePractice, Completed: 5}, 0.5},
		{sart.Snapshot{Phase: sart.PhaseTest, Completed: 25}, 0.5},
		{sart.Snapshot{Phase: sart.PhaseReadiness, Completed: 0}, 0},
	}
	for _, tt := range tests {
		if got := blockProgress(tt.snap); got != tt.want {
			t.Errorf("blockProgress(%s, %d) = %v, want %v", tt.snap.Phase, tt.snap.Completed, got, tt.want)
		}
	}
}
