package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sart-go/internal/config"
	"sart-go/internal/instrument"
	"sart-go/internal/models"
	"sart-go/internal/repository"
	"sart-go/internal/sart"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for an unknown or evicted session id.
var ErrSessionNotFound = errors.New("session not found")

// PersistFunc saves the report of a finished session.
type PersistFunc func(ctx context.Context, meta repository.ResultMeta, report sart.Report) error

// SaveReport persists a report through the repository.
func SaveReport(ctx context.Context, meta repository.ResultMeta, report sart.Report) error {
	summary, trials, err := repository.BuildSARTResult(meta, report)
	if err != nil {
		return err
	}
	return repository.SaveSARTResultTx(ctx, &summary, trials)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Rounds        int
	DefaultFiller string
	// Protocol, when set, is read on every Create so that new sessions
	// follow configuration reloads. Zero fields fall back to Rounds and
	// DefaultFiller.
	Protocol func() config.SARTConfig
	Filler   *models.FillerCatalog
	Hub      *Hub
	Persist  PersistFunc
	// NewLoop builds the loop for each session. Loops on a virtual clock
	// are not started and must be advanced by the caller.
	NewLoop func() *sart.Loop
	// PersistTimeout bounds a single save.
	PersistTimeout time.Duration
}

// Entry is a session held by the registry.
type Entry struct {
	ID            string
	Participant   string
	FillerVersion string
	Rounds        int
	Session       *sart.Session
	Loop          *sart.Loop
	CreatedAt     time.Time

	lastSeen atomic.Int64
	cancel   context.CancelFunc
	done     chan struct{}
}

// Touch marks the entry as in use.
func (e *Entry) Touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// LastSeen is the last time the entry was used.
func (e *Entry) LastSeen() time.Time {
	return time.Unix(0, e.lastSeen.Load())
}

// Registry keeps every running session in memory, each driven by its own loop.
type Registry struct {
	log  *zap.Logger
	opts RegistryOptions
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Entry
	persists sync.WaitGroup
}

func NewRegistry(log *zap.Logger, opts RegistryOptions) *Registry {
	if opts.Rounds <= 0 {
		opts.Rounds = sart.DefaultRounds
	}
	if opts.DefaultFiller == "" {
		opts.DefaultFiller = "v1"
	}
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	if opts.Persist == nil {
		opts.Persist = SaveReport
	}
	if opts.NewLoop == nil {
		opts.NewLoop = sart.NewLoop
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	return &Registry{
		log:      log.Named("registry"),
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Entry),
	}
}

// Hub returns the hub snapshots are published to.
func (r *Registry) Hub() *Hub {
	return r.opts.Hub
}

// protocol returns the round count and default filler for a new session.
func (r *Registry) protocol() (int, string) {
	rounds, filler := r.opts.Rounds, r.opts.DefaultFiller
	if r.opts.Protocol != nil {
		p := r.opts.Protocol()
		if p.Rounds > 0 {
			rounds = p.Rounds
		}
		if p.DefaultFiller != "" {
			filler = p.DefaultFiller
		}
	}
	return rounds, filler
}

// Create registers a new session in the instructions phase.
func (r *Registry) Create(participant, fillerVersion string) (*Entry, error) {
	rounds, defaultFiller := r.protocol()
	if fillerVersion == "" {
		fillerVersion = defaultFiller
	}
	if r.opts.Filler != nil && !r.opts.Filler.Has(fillerVersion) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownFillerVersion, fillerVersion)
	}

	id := uuid.NewString()
	log := r.log.With(zap.String("session", id))
	e := &Entry{
		ID:            id,
		Participant:   participant,
		FillerVersion: fillerVersion,
		Rounds:        rounds,
		Loop:          r.opts.NewLoop(),
		CreatedAt:     r.now(),
		done:          make(chan struct{}),
	}
	e.Touch(e.CreatedAt)

	meta := repository.ResultMeta{
		SessionID:     id,
		Participant:   participant,
		FillerVersion: fillerVersion,
		Rounds:        rounds,
	}
	// Completions run on the session loop, so the counter needs no lock.
	attempts := 0
	e.Session = sart.NewSession(e.Loop, sart.Options{
		Rounds: rounds,
		Logger: log,
		OnChange: func(snap sart.Snapshot) {
			r.opts.Hub.Publish(id, snap)
		},
		OnTrial: func(rec sart.TrialRecord) {
			instrument.TrialsScored.WithLabelValues(rec.Phase.String(), rec.Outcome.String()).Inc()
			if rec.Responded {
				instrument.ResponseLatency.Observe(rec.LatencyMs / 1000)
			}
		},
		OnComplete: func(report sart.Report) {
			instrument.SessionsCompleted.Inc()
			attempts++
			m := meta
			m.Attempt = attempts
			r.persist(log.With(zap.Int("attempt", attempts)), m, report)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	if e.Loop.Manual() {
		close(e.done)
	} else {
		go func() {
			defer close(e.done)
			e.Loop.Run(ctx)
		}()
	}

	r.mu.Lock()
	r.sessions[id] = e
	n := len(r.sessions)
	r.mu.Unlock()

	instrument.SessionsCreated.Inc()
	instrument.SessionsActive.Set(float64(n))
	log.Info("Session created", zap.String("participant", participant), zap.String("filler", fillerVersion))
	return e, nil
}

// persist runs on the session loop, so the save itself happens elsewhere.
func (r *Registry) persist(log *zap.Logger, meta repository.ResultMeta, report sart.Report) {
	r.persists.Add(1)
	go func() {
		defer r.persists.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.PersistTimeout)
		defer cancel()
		if err := r.opts.Persist(ctx, meta, report); err != nil {
			instrument.PersistFailures.Inc()
			log.Error("Failed to save session result", zap.Error(err))
			return
		}
		log.Info("Session result saved", zap.Float64("accuracy", report.Overall.Accuracy))
	}()
}

// Get returns the entry for id and marks it as in use.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.Touch(r.now())
	return e, nil
}

// Remove stops a session's loop and disconnects its subscribers.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return false
	}

	r.stop(e)
	instrument.SessionsActive.Set(float64(n))
	return true
}

func (r *Registry) stop(e *Entry) {
	e.Loop.Do(func() { e.Loop.CancelAll() })
	e.cancel()
	<-e.done
	r.opts.Hub.CloseSession(e.ID)
}

// Reap removes every session idle for longer than ttl.
func (r *Registry) Reap(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var stale []*Entry
	for id, e := range r.sessions {
		if e.LastSeen().Before(cutoff) {
			stale = append(stale, e)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, e := range stale {
		r.stop(e)
		r.log.Debug("Session evicted", zap.String("session", e.ID), zap.Time("last_seen", e.LastSeen()))
	}
	instrument.SessionsReaped.Add(float64(len(stale)))
	instrument.SessionsActive.Set(float64(n))
	return len(stale)
}

// Len returns the number of sessions held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops every session and waits for pending saves.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		all = append(all, e)
	}
	r.sessions = make(map[string]*Entry)
	r.mu.Unlock()

	for _, e := range all {
		r.stop(e)
	}
	r.persists.Wait()
	instrument.SessionsActive.Set(0)
}
