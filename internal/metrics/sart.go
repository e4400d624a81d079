package metrics

import (
	"math"

	"sart-go/internal/sart"
)

// SARTData is the scored trial log of a session, practice included.
type SARTData struct {
	Trials []sart.TrialRecord `json:"trials"`
}

// SARTDerived holds the metrics computed on top of the session counters.
type SARTDerived struct {
	ReactionTimeSD      float64 `json:"reactionTimeSD"`
	CommissionErrorRate float64 `json:"commissionErrorRate"`
	OmissionErrorRate   float64 `json:"omissionErrorRate"`
	TargetsPresented    int     `json:"targetsPresented"`
	NonTargetsPresented int     `json:"nonTargetsPresented"`
}

// TestTrials keeps only the scored test trials, optionally for one round.
// A round of zero selects every round.
func (d *SARTData) TestTrials(round int) []sart.TrialRecord {
	var out []sart.TrialRecord
	for _, t := range d.Trials {
		if t.Phase != sart.PhaseTest {
			continue
		}
		if round != 0 && t.Round != round {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Derive computes the derived metrics for one round, or all rounds when
// round is zero.
func Derive(data *SARTData, round int) SARTDerived {
	trials := data.TestTrials(round)
	return SARTDerived{
		ReactionTimeSD:      CalculateSARTReactionTimeSD(trials),
		CommissionErrorRate: CalculateSARTCommissionErrorRate(trials),
		OmissionErrorRate:   CalculateSARTOmissionErrorRate(trials),
		TargetsPresented:    countTargets(trials, true),
		NonTargetsPresented: countTargets(trials, false),
	}
}

// CalculateSARTReactionTimeSD is the population standard deviation of
// correct-response latencies. Commission latencies are excluded.
func CalculateSARTReactionTimeSD(trials []sart.TrialRecord) float64 {
	var reactionTimes []float64
	for _, t := range trials {
		if t.Outcome == sart.OutcomeCorrectResponse {
			reactionTimes = append(reactionTimes, t.LatencyMs)
		}
	}

	if len(reactionTimes) <= 1 {
		return 0
	}

	var sum float64
	for _, rt := range reactionTimes {
		sum += rt
	}
	avg := sum / float64(len(reactionTimes))

	var sumSquaredDiff float64
	for _, rt := range reactionTimes {
		diff := rt - avg
		sumSquaredDiff += diff * diff
	}

	variance := sumSquaredDiff / float64(len(reactionTimes))
	return math.Sqrt(variance)
}

// CalculateSARTCommissionErrorRate is commissions over targets presented.
func CalculateSARTCommissionErrorRate(trials []sart.TrialRecord) float64 {
	targets := countTargets(trials, true)
	if targets == 0 {
		return 0
	}
	return float64(countOutcome(trials, sart.OutcomeCommission)) / float64(targets)
}

// CalculateSARTOmissionErrorRate is omissions over non-targets presented.
func CalculateSARTOmissionErrorRate(trials []sart.TrialRecord) float64 {
	nonTargets := countTargets(trials, false)
	if nonTargets == 0 {
		return 0
	}
	return float64(countOutcome(trials, sart.OutcomeOmission)) / float64(nonTargets)
}

func countTargets(trials []sart.TrialRecord, target bool) int {
	count := 0
	for _, t := range trials {
		if t.IsTarget == target {
			count++
		}
	}
	return count
}

func countOutcome(trials []sart.TrialRecord, o sart.Outcome) int {
	count := 0
	for _, t := range trials {
		if t.Outcome == o {
			count++
		}
	}
	return count
}
