package sart

import "math/rand/v2"

// TargetDigit is the digit participants must withhold a response to.
const TargetDigit = 3

// TargetProbability is the chance that any single trial shows the target.
const TargetProbability = 0.20

var nonTargetDigits = [...]int{1, 2, 4, 5, 6, 7, 8, 9}

// Generator draws trial digits. Each trial is an independent Bernoulli draw,
// so runs of targets and repeated digits are possible.
type Generator struct {
	rng *rand.Rand
	p   float64
}

// NewGenerator returns a generator seeded from seed. Sessions created with the
// same seed see the same digit sequence.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		p:   TargetProbability,
	}
}

// IsTarget decides whether the next trial shows the target digit.
func (g *Generator) IsTarget() bool {
	return g.rng.Float64() < g.p
}

// NextDigit returns the digit for a trial.
func (g *Generator) NextDigit(isTarget bool) int {
	if isTarget {
		return TargetDigit
	}
	return nonTargetDigits[g.rng.IntN(len(nonTargetDigits))]
}

// Draw makes the target decision and picks the digit in one step.
func (g *Generator) Draw() int {
	return g.NextDigit(g.IsTarget())
}
