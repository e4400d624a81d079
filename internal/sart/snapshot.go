package sart

import "slices"

// Snapshot is a read-only view of a session for presentation layers.
type Snapshot struct {
	Phase          Phase         `json:"phase"`
	Digit          *int          `json:"digit"`
	Trial          int           `json:"trial"`
	Completed      int           `json:"completed"`
	PracticeTrials int           `json:"practiceTrials"`
	Round          int           `json:"round"`
	TotalRounds    int           `json:"totalRounds"`
	Countdown      *int          `json:"countdown"`
	Feedback       Feedback      `json:"feedback"`
	TrialActive    bool          `json:"trialActive"`
	Current        Result        `json:"current"`
	Practice       Result        `json:"practice"`
	Rounds         []RoundResult `json:"rounds"`
	Overall        *Result       `json:"overall,omitempty"`
}

// TrialsInPhase is the trial quota of the snapshot's phase, or zero outside
// practice and test.
func (s Snapshot) TrialsInPhase() int {
	switch s.Phase {
	case PhasePractice:
		return PracticeTrials
	case PhaseTest:
		return TrialsPerRound
	default:
		return 0
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Phase:          s.phase,
		Trial:          s.started,
		Completed:      s.completed,
		PracticeTrials: s.practiceTrials,
		Round:          s.round,
		TotalRounds:    s.rounds,
		Feedback:       s.feedback,
		TrialActive:    s.windowOpen,
		Current:        s.tally.Result(),
		Practice:       s.practice,
		Rounds:         slices.Clone(s.roundResults),
	}
	if snap.Rounds == nil {
		snap.Rounds = []RoundResult{}
	}
	if s.digitVisible && s.trial != nil {
		d := s.trial.Digit
		snap.Digit = &d
	}
	if s.countdown > 0 {
		c := s.countdown
		snap.Countdown = &c
	}
	if s.overall != nil {
		o := *s.overall
		snap.Overall = &o
	}
	return snap
}
