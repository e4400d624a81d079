package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"sart-go/internal/repository"
	"sart-go/internal/sart"
	"sart-go/internal/services"
	"sart-go/internal/simulate"
	"sart-go/internal/tui"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var simOpts struct {
	rounds      int
	seed        uint64
	participant string
	meanRT      time.Duration
	sdRT        time.Duration
	commission  float64
	omission    float64
	jsonOut     bool
	save        bool
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simOpts.rounds, "rounds", sart.DefaultRounds, "Number of test rounds")
	f.Uint64Var(&simOpts.seed, "seed", 0, "Random seed (0 picks one)")
	f.StringVar(&simOpts.participant, "participant", "simulated", "Participant id stored with --save")
	f.DurationVar(&simOpts.meanRT, "rt-mean", simulate.DefaultParticipant.MeanRT, "Mean response latency")
	f.DurationVar(&simOpts.sdRT, "rt-sd", simulate.DefaultParticipant.SDRT, "Response latency standard deviation")
	f.Float64Var(&simOpts.commission, "commission-rate", simulate.DefaultParticipant.CommissionRate, "Chance of pressing on a 3")
	f.Float64Var(&simOpts.omission, "omission-rate", simulate.DefaultParticipant.OmissionRate, "Chance of missing any other digit")
	f.BoolVar(&simOpts.jsonOut, "json", false, "Print the full report as JSON")
	f.BoolVar(&simOpts.save, "save", false, "Store the result in the configured database")
	rootCmd.AddCommand(simulateCmd)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a session with a synthetic participant",
	Long: `Play a whole session, practice included, on a virtual clock with a
synthetic participant and print the scores.`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simOpts.commission < 0 || simOpts.commission > 1 || simOpts.omission < 0 || simOpts.omission > 1 {
		return fmt.Errorf("rates must be between 0 and 1")
	}

	report, err := simulate.Run(simulate.Options{
		Rounds: simOpts.rounds,
		Seed:   simOpts.seed,
		Participant: simulate.Participant{
			MeanRT:         simOpts.meanRT,
			SDRT:           simOpts.sdRT,
			CommissionRate: simOpts.commission,
			OmissionRate:   simOpts.omission,
		},
	})
	if err != nil {
		return err
	}

	if simOpts.save {
		if err := saveSimulation(report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if simOpts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintln(out, reportTable(report))
	return nil
}

func saveSimulation(report sart.Report) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := openDatabase(cfg.Database, log); err != nil {
		return err
	}

	meta := repository.ResultMeta{
		SessionID:     uuid.NewString(),
		Participant:   simOpts.participant,
		FillerVersion: cfg.SART.DefaultFiller,
		Rounds:        len(report.Rounds),
	}
	if err := services.SaveReport(context.Background(), meta, report); err != nil {
		return fmt.Errorf("failed to save simulated result: %w", err)
	}
	log.Info("Simulated result saved", zap.String("session", meta.SessionID))
	fmt.Fprintln(os.Stderr, "saved as session", meta.SessionID)
	return nil
}

func reportTable(r sart.Report) string {
	labels := []string{"Practice"}
	results := []sart.Result{r.Practice}
	for _, rr := range r.Rounds {
		labels = append(labels, fmt.Sprintf("Round %d", rr.RoundNumber))
		results = append(results, rr.Result)
	}
	labels = append(labels, "Overall")
	results = append(results, r.Overall)
	return tui.ResultTable(labels, results)
}
