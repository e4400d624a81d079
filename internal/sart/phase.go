package sart

import (
	"encoding/json"
	"time"
)

// Fixed trial structure.
const (
	PracticeTrials     = 10
	TrialsPerRound     = 50
	DefaultRounds      = 3
	StimulusDuration   = 250 * time.Millisecond
	ResponseWindow     = 1150 * time.Millisecond
	InterTrialInterval = 900 * time.Millisecond
	FeedbackDuration   = 1000 * time.Millisecond
	CountdownFrom      = 3
	CountdownStep      = time.Second
)

type Phase int

const (
	PhaseInstructions Phase = iota
	PhasePractice
	PhaseReadiness
	PhaseTest
	PhaseBetweenRounds
	PhaseResults
)

var phaseNames = map[Phase]string{
	PhaseInstructions:  "instructions",
	PhasePractice:      "practice",
	PhaseReadiness:     "readiness",
	PhaseTest:          "test",
	PhaseBetweenRounds: "betweenRounds",
	PhaseResults:       "results",
}

var phaseFromName = map[string]Phase{
	"instructions":  PhaseInstructions,
	"practice":      PhasePractice,
	"readiness":     PhaseReadiness,
	"test":          PhaseTest,
	"betweenRounds": PhaseBetweenRounds,
	"results":       PhaseResults,
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := phaseFromName[s]; ok {
		*p = v
	}
	return nil
}

// Feedback is the transient acknowledgement shown after a trial.
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackCorrect
	FeedbackCommission
	FeedbackOmission
)

func (f Feedback) String() string {
	switch f {
	case FeedbackCorrect:
		return "correct"
	case FeedbackCommission:
		return "commission"
	case FeedbackOmission:
		return "omission"
	default:
		return ""
	}
}

// MarshalJSON encodes FeedbackNone as null.
func (f Feedback) MarshalJSON() ([]byte, error) {
	if f == FeedbackNone {
		return []byte("null"), nil
	}
	return json.Marshal(f.String())
}

// Response reports what happened to a response attempt.
type Response int

const (
	ResponseAccepted Response = iota
	ResponseNoTrial
	ResponseDuplicate
	ResponseOutOfWindow
)

func (r Response) String() string {
	switch r {
	case ResponseAccepted:
		return "accepted"
	case ResponseNoTrial:
		return "no_trial"
	case ResponseDuplicate:
		return "duplicate"
	case ResponseOutOfWindow:
		return "out_of_window"
	default:
		return "unknown"
	}
}

func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}
