package sart

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the classification of a single trial.
type Outcome int

const (
	OutcomeCorrectResponse Outcome = iota
	OutcomeCorrectNonResponse
	OutcomeCommission
	OutcomeOmission
)

var outcomeNames = map[Outcome]string{
	OutcomeCorrectResponse:    "correct_response",
	OutcomeCorrectNonResponse: "correct_non_response",
	OutcomeCommission:         "commission",
	OutcomeOmission:           "omission",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range outcomeNames {
		if v == s {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", s)
}

// Classify maps a trial's digit and response onto its outcome.
func Classify(isTarget, responded bool) Outcome {
	switch {
	case isTarget && responded:
		return OutcomeCommission
	case isTarget:
		return OutcomeCorrectNonResponse
	case responded:
		return OutcomeCorrectResponse
	default:
		return OutcomeOmission
	}
}

// Result holds the counters for a round, the practice block or the whole test.
type Result struct {
	TotalTrials      int     `json:"totalTrials"`
	CorrectResponses int     `json:"correctResponses"`
	CommissionErrors int     `json:"commissionErrors"`
	OmissionErrors   int     `json:"omissionErrors"`
	AverageRT        float64 `json:"averageRT"`
	Accuracy         float64 `json:"accuracy"`
}

// CorrectNonResponses is the number of targets correctly withheld.
func (r Result) CorrectNonResponses() int {
	return r.TotalTrials - r.CorrectResponses - r.CommissionErrors - r.OmissionErrors
}

// RoundResult is the frozen result of one test round.
type RoundResult struct {
	RoundNumber int `json:"roundNumber"`
	Result
}

// Tally accumulates trial outcomes for the running phase.
type Tally struct {
	total               int
	correctResponses    int
	correctNonResponses int
	commissions         int
	omissions           int
	latencies           []float64
}

// Record adds one scored trial. latency is only used for correct responses.
func (t *Tally) Record(o Outcome, latency time.Duration) {
	t.total++
	switch o {
	case OutcomeCorrectResponse:
		t.correctResponses++
		t.latencies = append(t.latencies, milliseconds(latency))
	case OutcomeCorrectNonResponse:
		t.correctNonResponses++
	case OutcomeCommission:
		t.commissions++
	case OutcomeOmission:
		t.omissions++
	}
}

// Reset clears the tally.
func (t *Tally) Reset() {
	*t = Tally{}
}

// Total is the number of trials recorded.
func (t *Tally) Total() int {
	return t.total
}

// Accuracy returns the percentage of trials that were correct responses or
// correct non-responses.
func (t *Tally) Accuracy() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.correctResponses+t.correctNonResponses) / float64(t.total) * 100
}

// AverageRT is the mean latency of correct responses in milliseconds.
func (t *Tally) AverageRT() float64 {
	if len(t.latencies) == 0 {
		return 0
	}
	var sum float64
	for _, l := range t.latencies {
		sum += l
	}
	return sum / float64(len(t.latencies))
}

// Result freezes the tally.
func (t *Tally) Result() Result {
	return Result{
		TotalTrials:      t.total,
		CorrectResponses: t.correctResponses,
		CommissionErrors: t.commissions,
		OmissionErrors:   t.omissions,
		AverageRT:        t.AverageRT(),
		Accuracy:         t.Accuracy(),
	}
}

// Overall combines round results. Counts are summed and accuracy is taken
// over the pooled totals. The overall reaction time is the mean of a sample
// that repeats every round's average once per correct response in that
// round, which weights round means by their correct-response counts rather
// than pooling the raw latencies.
func Overall(rounds []RoundResult) Result {
	var out Result
	var correctNonResponses int
	var weighted float64
	for _, r := range rounds {
		out.TotalTrials += r.TotalTrials
		out.CorrectResponses += r.CorrectResponses
		out.CommissionErrors += r.CommissionErrors
		out.OmissionErrors += r.OmissionErrors
		correctNonResponses += r.CorrectNonResponses()
		weighted += float64(r.CorrectResponses) * r.AverageRT
	}
	if out.TotalTrials > 0 {
		out.Accuracy = float64(out.CorrectResponses+correctNonResponses) / float64(out.TotalTrials) * 100
	}
	if out.CorrectResponses > 0 {
		out.AverageRT = weighted / float64(out.CorrectResponses)
	}
	return out
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
