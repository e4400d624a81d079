package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"sart-go/internal/config"
	logger "sart-go/internal/logging"
	"sart-go/internal/repository"
	"sart-go/internal/sart"
	"sart-go/internal/services"
	"sart-go/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runOpts struct {
	rounds       int
	participant  string
	instructions string
	save         bool
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runOpts.rounds, "rounds", 0, "Number of test rounds (overrides config)")
	f.StringVar(&runOpts.participant, "participant", "local", "Participant id stored with --save")
	f.StringVar(&runOpts.instructions, "instructions", "", "Markdown file shown before practice")
	f.BoolVar(&runOpts.save, "save", false, "Store the result in the configured database")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Take the test in the terminal",
	RunE:  runTerminal,
}

func runTerminal(cmd *cobra.Command, args []string) error {
	cfg, log, err := terminalBootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	rounds := cfg.SART.Rounds
	if runOpts.rounds > 0 {
		rounds = runOpts.rounds
	}

	var markdown string
	if runOpts.instructions != "" {
		data, err := os.ReadFile(resolve(runOpts.instructions))
		if err != nil {
			return fmt.Errorf("failed to read instructions: %w", err)
		}
		markdown = string(data)
	}

	if runOpts.save {
		if err := openDatabase(cfg.Database, log); err != nil {
			return err
		}
	}

	sessionID := uuid.NewString()
	saves := &attemptSaves{}
	loop := sart.NewLoop()
	session := sart.NewSession(loop, sart.Options{
		Rounds: rounds,
		Logger: log.With(zap.String("session", sessionID)),
		OnComplete: func(report sart.Report) {
			if !runOpts.save {
				return
			}
			saves.save(repository.ResultMeta{
				SessionID:     sessionID,
				Participant:   runOpts.participant,
				FillerVersion: cfg.SART.DefaultFiller,
				Rounds:        rounds,
			}, report, services.SaveReport)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	if _, err := tea.NewProgram(tui.New(session, markdown), tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	loop.Do(func() { loop.CancelAll() })
	cancel()

	return saves.wait(cmd.OutOrStdout())
}

// terminalBootstrap is bootstrap for commands whose program owns the
// terminal, so logs only go to the files.
func terminalBootstrap() (*config.Config, *zap.Logger, error) {
	return bootstrap(logger.WithoutConsole())
}

// attemptSaves stores every completion of a terminal session, one attempt
// per pass through the results screen.
type attemptSaves struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	attempts int
	saved    []repository.ResultMeta
	errs     []error
}

func (a *attemptSaves) save(meta repository.ResultMeta, report sart.Report, persist services.PersistFunc) {
	a.mu.Lock()
	a.attempts++
	meta.Attempt = a.attempts
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := persist(context.Background(), meta, report)
		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("failed to save attempt %d: %w", meta.Attempt, err))
			return
		}
		a.saved = append(a.saved, meta)
	}()
}

// wait blocks until every save has finished and reports each stored attempt.
func (a *attemptSaves) wait(out io.Writer) error {
	a.wg.Wait()
	a.mu.Lock()
	defer a.mu.Unlock()
	slices.SortFunc(a.saved, func(x, y repository.ResultMeta) int { return x.Attempt - y.Attempt })
	for _, m := range a.saved {
		fmt.Fprintf(out, "saved attempt %d as session %s\n", m.Attempt, m.SessionID)
	}
	return errors.Join(a.errs...)
}
