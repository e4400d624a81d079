package metrics

import (
	"math"
	"testing"

	"sart-go/internal/sart"
)

func trial(phase sart.Phase, round, digit int, latency float64) sart.TrialRecord {
	isTarget := digit == sart.TargetDigit
	responded := latency > 0
	return sart.TrialRecord{
		Phase:     phase,
		Round:     round,
		Digit:     digit,
		IsTarget:  isTarget,
		Responded: responded,
		LatencyMs: latency,
		Outcome:   sart.Classify(isTarget, responded),
	}
}

func TestDerive(t *testing.T) {
	data := &SARTData{Trials: []sart.TrialRecord{
		trial(sart.PhasePractice, 0, 3, 50), // practice is ignored
		trial(sart.PhaseTest, 1, 1, 200),
		trial(sart.PhaseTest, 1, 2, 400),
		trial(sart.PhaseTest, 1, 3, 100), // commission, latency excluded
		trial(sart.PhaseTest, 1, 4, 0),   // omission
		trial(sart.PhaseTest, 2, 3, 0),   // correct non-response
		trial(sart.PhaseTest, 2, 5, 300),
	}}

	all := Derive(data, 0)
	if all.TargetsPresented != 2 || all.NonTargetsPresented != 4 {
		t.Errorf("targets = %d/%d, want 2/4", all.TargetsPresented, all.NonTargetsPresented)
	}
	if all.CommissionErrorRate != 0.5 {
		t.Errorf("CommissionErrorRate = %v, want 0.5", all.CommissionErrorRate)
	}
	if all.OmissionErrorRate != 0.25 {
		t.Errorf("OmissionErrorRate = %v, want 0.25", all.OmissionErrorRate)
	}
	// 200, 400, 300 around a mean of 300.
	want := math.Sqrt(20000.0 / 3)
	if math.Abs(all.ReactionTimeSD-want) > 1e-9 {
		t.Errorf("ReactionTimeSD = %v, want %v", all.ReactionTimeSD, want)
	}

	r1 := Derive(data, 1)
	if r1.ReactionTimeSD != 100 {
		t.Errorf("round 1 ReactionTimeSD = %v, want 100", r1.ReactionTimeSD)
	}
	if r1.CommissionErrorRate != 1 {
		t.Errorf("round 1 CommissionErrorRate = %v, want 1", r1.CommissionErrorRate)
	}
}

func TestDeriveEmpty(t *testing.T) {
	got := Derive(&SARTData{}, 0)
	if got != (SARTDerived{}) {
		t.Errorf("Derive(empty) = %+v, want zero value", got)
	}
}
