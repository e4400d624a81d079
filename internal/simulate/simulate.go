// Package simulate plays SART sessions with a synthetic participant on a
// virtual clock, so a full test finishes in milliseconds.
package simulate

import (
	"errors"
	"math/rand/v2"
	"time"

	"sart-go/internal/sart"

	"go.uber.org/zap"
)

// Participant describes how the synthetic participant behaves.
type Participant struct {
	// MeanRT and SDRT shape the normally distributed response latency.
	MeanRT time.Duration
	SDRT   time.Duration
	// CommissionRate is the chance of pressing on a target.
	CommissionRate float64
	// OmissionRate is the chance of missing a non-target.
	OmissionRate float64
}

// DefaultParticipant is a typical attentive adult.
var DefaultParticipant = Participant{
	MeanRT:         350 * time.Millisecond,
	SDRT:           80 * time.Millisecond,
	CommissionRate: 0.3,
	OmissionRate:   0.02,
}

const (
	minLatency = 100 * time.Millisecond
	maxLatency = sart.ResponseWindow - 50*time.Millisecond
)

// Options configures a simulated run.
type Options struct {
	Rounds      int
	Seed        uint64
	Participant Participant
	Logger      *zap.Logger
	// OnTrial sees every scored trial.
	OnTrial func(sart.TrialRecord)
}

var errNoReport = errors.New("simulation ended without a report")

// Run plays a whole session, practice included, and returns its report.
func Run(opts Options) (sart.Report, error) {
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1|1))

	var report *sart.Report
	loop := sart.NewManualLoop(time.Now().UTC().Truncate(time.Second))
	s := sart.NewSession(loop, sart.Options{
		Rounds:  opts.Rounds,
		Seed:    opts.Seed,
		Logger:  opts.Logger,
		OnTrial: opts.OnTrial,
		OnComplete: func(r sart.Report) {
			report = &r
		},
	})

	s.Start()
	for report == nil {
		snap := s.Snapshot()
		switch snap.Phase {
		case sart.PhasePractice, sart.PhaseTest:
			playBlock(s, loop, snap.TrialsInPhase(), opts.Participant, rng)
		case sart.PhaseReadiness:
			s.BeginRealTest()
		case sart.PhaseBetweenRounds:
			s.AdvanceToNextRound()
		default:
			return sart.Report{}, errNoReport
		}
	}
	return *report, nil
}

func playBlock(s *sart.Session, loop *sart.Loop, trials int, p Participant, rng *rand.Rand) {
	loop.Advance(sart.CountdownFrom * sart.CountdownStep)
	for i := 0; i < trials; i++ {
		snap := s.Snapshot()
		var elapsed time.Duration
		if snap.Digit != nil && p.presses(*snap.Digit, rng) {
			elapsed = p.latency(rng)
			loop.Advance(elapsed)
			s.RespondNow()
		}
		loop.Advance(sart.ResponseWindow + sart.InterTrialInterval - elapsed)
	}
}

func (p Participant) presses(digit int, rng *rand.Rand) bool {
	if digit == sart.TargetDigit {
		return rng.Float64() < p.CommissionRate
	}
	return rng.Float64() >= p.OmissionRate
}

func (p Participant) latency(rng *rand.Rand) time.Duration {
	d := p.MeanRT + time.Duration(rng.NormFloat64()*float64(p.SDRT))
	return max(minLatency, min(maxLatency, d))
}
