package sart

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Trial is the stimulus currently on screen or most recently shown.
type Trial struct {
	Index       int
	Digit       int
	PresentedAt time.Time
	Responded   bool
	Latency     time.Duration
}

func (t Trial) IsTarget() bool {
	return t.Digit == TargetDigit
}

// TrialRecord is the scored form of a trial kept in the session log.
type TrialRecord struct {
	Phase       Phase     `json:"phase"`
	Round       int       `json:"round"`
	Index       int       `json:"index"`
	Digit       int       `json:"digit"`
	IsTarget    bool      `json:"isTarget"`
	Responded   bool      `json:"responded"`
	LatencyMs   float64   `json:"latencyMs,omitempty"`
	Outcome     Outcome   `json:"outcome"`
	PresentedAt time.Time `json:"presentedAt"`
}

// Report is handed to OnComplete once the final round is scored.
type Report struct {
	Practice    Result        `json:"practice"`
	Rounds      []RoundResult `json:"rounds"`
	Overall     Result        `json:"overall"`
	Trials      []TrialRecord `json:"trials"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
}

// Options configures a Session. Hooks run on the session's loop and must not
// call back into the session.
type Options struct {
	Rounds     int
	Seed       uint64
	Logger     *zap.Logger
	OnChange   func(Snapshot)
	OnTrial    func(TrialRecord)
	OnComplete func(Report)
}

// Session is the SART state machine. All state is owned by the session and
// only changes inside its loop, either from an entry point or from a timer
// the session scheduled itself.
type Session struct {
	loop   *Loop
	gen    *Generator
	log    *zap.Logger
	rounds int

	onChange   func(Snapshot)
	onTrial    func(TrialRecord)
	onComplete func(Report)

	phase          Phase
	tag            Tag
	epoch          int
	round          int
	started        int
	completed      int
	practiceTrials int
	countdown      int
	trial          *Trial
	windowOpen     bool
	digitVisible   bool
	nextTimer      TimerID
	feedback       Feedback
	feedbackTimer  TimerID
	tally          Tally
	practice       Result
	roundResults   []RoundResult
	overall        *Result
	trials         []TrialRecord
	startedAt      time.Time
}

const feedbackTag Tag = "feedback"

// NewSession creates a session in the instructions phase. The loop should
// drive no other session.
func NewSession(loop *Loop, opts Options) *Session {
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultRounds
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{
		loop:       loop,
		gen:        NewGenerator(opts.Seed),
		log:        opts.Logger,
		rounds:     opts.Rounds,
		onChange:   opts.OnChange,
		onTrial:    opts.OnTrial,
		onComplete: opts.OnComplete,
		phase:      PhaseInstructions,
	}
}

// Start begins the practice block after the countdown.
func (s *Session) Start() bool {
	applied := false
	s.loop.Do(func() {
		if s.phase != PhaseInstructions {
			return
		}
		s.startedAt = s.loop.Now()
		s.enterPhase(PhasePractice)
		s.countdownThen(func() { s.startTrial() })
		s.notify()
		applied = true
	})
	return applied
}

// BeginRealTest moves from readiness into round one.
func (s *Session) BeginRealTest() bool {
	applied := false
	s.loop.Do(func() {
		if s.phase != PhaseReadiness {
			return
		}
		s.round = 1
		s.beginRound()
		applied = true
	})
	return applied
}

// AdvanceToNextRound starts the next round from the between-rounds break.
func (s *Session) AdvanceToNextRound() bool {
	applied := false
	s.loop.Do(func() {
		if s.phase != PhaseBetweenRounds || s.round >= s.rounds {
			return
		}
		s.round++
		s.beginRound()
		applied = true
	})
	return applied
}

// Step presents the next trial immediately instead of waiting for the
// inter-trial interval. It is the entry point for callers that drive a
// block by hand, such as a manual loop in a replay. It is refused while a
// response window is open, during a countdown or outside a running block,
// so a trial can never be started twice.
func (s *Session) Step() bool {
	applied := false
	s.loop.Do(func() {
		if s.phase != PhasePractice && s.phase != PhaseTest {
			return
		}
		if s.countdown > 0 {
			return
		}
		if !s.startTrial() {
			return
		}
		applied = true
	})
	return applied
}

// Respond records a response made at the given time.
func (s *Session) Respond(at time.Time) Response {
	var r Response
	s.loop.Do(func() {
		r = s.respond(at)
	})
	return r
}

// RespondNow records a response at the loop's current time.
func (s *Session) RespondNow() Response {
	var r Response
	s.loop.Do(func() {
		r = s.respond(s.loop.Now())
	})
	return r
}

// Reset returns to the instructions phase, dropping every counter and
// cancelling everything the session has scheduled.
func (s *Session) Reset() {
	s.loop.Do(func() {
		s.loop.CancelTag(s.tag)
		s.loop.CancelTag(feedbackTag)
		s.log.Debug("Session reset", zap.Stringer("phase", s.phase), zap.Int("round", s.round))

		s.phase = PhaseInstructions
		s.tag = ""
		s.round = 0
		s.started = 0
		s.completed = 0
		s.practiceTrials = 0
		s.countdown = 0
		s.trial = nil
		s.windowOpen = false
		s.digitVisible = false
		s.nextTimer = 0
		s.feedback = FeedbackNone
		s.feedbackTimer = 0
		s.tally.Reset()
		s.practice = Result{}
		s.roundResults = nil
		s.overall = nil
		s.trials = nil
		s.startedAt = time.Time{}
		s.notify()
	})
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.loop.Do(func() {
		snap = s.snapshot()
	})
	return snap
}

// Trials returns a copy of the scored trial log.
func (s *Session) Trials() []TrialRecord {
	var out []TrialRecord
	s.loop.Do(func() {
		out = slices.Clone(s.trials)
	})
	return out
}

func (s *Session) enterPhase(p Phase) {
	if s.tag != "" {
		if n := s.loop.CancelTag(s.tag); n > 0 {
			s.log.Debug("Cancelled pending timers", zap.String("tag", string(s.tag)), zap.Int("count", n))
		}
	}
	s.epoch++
	s.tag = Tag(fmt.Sprintf("%s/%d", p, s.epoch))
	s.log.Debug("Phase change", zap.Stringer("from", s.phase), zap.Stringer("to", p), zap.Int("round", s.round))

	s.phase = p
	s.started = 0
	s.completed = 0
	s.countdown = 0
	s.trial = nil
	s.windowOpen = false
	s.digitVisible = false
	s.nextTimer = 0
	s.tally.Reset()
}

func (s *Session) beginRound() {
	s.enterPhase(PhaseTest)
	s.countdownThen(func() { s.startTrial() })
	s.notify()
}

func (s *Session) countdownThen(then func()) {
	s.countdown = CountdownFrom
	var tick func()
	tick = func() {
		s.countdown--
		if s.countdown > 0 {
			s.loop.Schedule(CountdownStep, s.tag, "countdown", tick)
			s.notify()
			return
		}
		then()
	}
	s.loop.Schedule(CountdownStep, s.tag, "countdown", tick)
}

// startTrial presents a new digit. It refuses to run while another trial's
// window is still open.
func (s *Session) startTrial() bool {
	if s.windowOpen {
		return false
	}
	if s.nextTimer != 0 {
		s.loop.Cancel(s.nextTimer)
		s.nextTimer = 0
	}

	s.started++
	s.trial = &Trial{
		Index:       s.started,
		Digit:       s.gen.Draw(),
		PresentedAt: s.loop.Now(),
	}
	s.windowOpen = true
	s.digitVisible = true

	s.loop.Schedule(StimulusDuration, s.tag, "hide", s.hideStimulus)
	s.loop.Schedule(ResponseWindow, s.tag, "close", s.closeTrial)
	s.notify()
	return true
}

func (s *Session) hideStimulus() {
	s.digitVisible = false
	s.notify()
}

func (s *Session) closeTrial() {
	t := s.trial
	s.windowOpen = false

	outcome := Classify(t.IsTarget(), t.Responded)
	if !t.Responded {
		if outcome == OutcomeOmission {
			s.showFeedback(FeedbackOmission)
		} else {
			s.showFeedback(FeedbackCorrect)
		}
	}
	s.tally.Record(outcome, t.Latency)
	s.completed++
	if s.phase == PhasePractice {
		s.practiceTrials = s.completed
	}

	rec := TrialRecord{
		Phase:       s.phase,
		Round:       s.round,
		Index:       t.Index,
		Digit:       t.Digit,
		IsTarget:    t.IsTarget(),
		Responded:   t.Responded,
		Outcome:     outcome,
		PresentedAt: t.PresentedAt,
	}
	if t.Responded {
		rec.LatencyMs = milliseconds(t.Latency)
	}
	s.trials = append(s.trials, rec)
	if s.onTrial != nil {
		s.onTrial(rec)
	}

	switch {
	case s.phase == PhasePractice && s.completed >= PracticeTrials:
		s.finishPractice()
	case s.phase == PhaseTest && s.completed >= TrialsPerRound:
		s.finishRound()
	default:
		s.nextTimer = s.loop.Schedule(InterTrialInterval, s.tag, "next", func() {
			s.nextTimer = 0
			s.startTrial()
		})
		s.notify()
	}
}

func (s *Session) finishPractice() {
	s.practice = s.tally.Result()
	s.enterPhase(PhaseReadiness)
	s.notify()
}

func (s *Session) finishRound() {
	s.roundResults = append(s.roundResults, RoundResult{
		RoundNumber: s.round,
		Result:      s.tally.Result(),
	})
	s.log.Info("Round complete",
		zap.Int("round", s.round),
		zap.Float64("accuracy", s.roundResults[len(s.roundResults)-1].Accuracy),
	)

	if s.round < s.rounds {
		s.enterPhase(PhaseBetweenRounds)
		s.notify()
		return
	}

	overall := Overall(s.roundResults)
	s.overall = &overall
	s.enterPhase(PhaseResults)
	s.notify()
	if s.onComplete != nil {
		s.onComplete(s.report())
	}
}

func (s *Session) respond(at time.Time) Response {
	if s.trial == nil || !s.windowOpen {
		return ResponseNoTrial
	}
	if s.trial.Responded {
		return ResponseDuplicate
	}
	latency := at.Sub(s.trial.PresentedAt)
	if latency < 0 || latency >= ResponseWindow {
		return ResponseOutOfWindow
	}

	s.trial.Responded = true
	s.trial.Latency = latency
	if s.trial.IsTarget() {
		s.showFeedback(FeedbackCommission)
	} else {
		s.showFeedback(FeedbackCorrect)
	}
	s.notify()
	return ResponseAccepted
}

func (s *Session) showFeedback(f Feedback) {
	if s.feedbackTimer != 0 {
		s.loop.Cancel(s.feedbackTimer)
	}
	s.feedback = f
	s.feedbackTimer = s.loop.Schedule(FeedbackDuration, feedbackTag, "feedback", func() {
		s.feedback = FeedbackNone
		s.feedbackTimer = 0
		s.notify()
	})
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}

func (s *Session) report() Report {
	r := Report{
		Practice:    s.practice,
		Rounds:      slices.Clone(s.roundResults),
		Trials:      slices.Clone(s.trials),
		StartedAt:   s.startedAt,
		CompletedAt: s.loop.Now(),
	}
	if s.overall != nil {
		r.Overall = *s.overall
	}
	return r
}
