package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"sart-go/internal/config"
	"sart-go/internal/database"
	"sart-go/internal/models"
	"sart-go/internal/sart"

	"go.uber.org/zap"
)

func setupDB(t *testing.T) {
	t.Helper()
	log := zap.NewNop()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, log)
	if err != nil {
		t.Fatalf("database.Open() error: %v", err)
	}
	if err := database.Migrate(db, log); err != nil {
		t.Fatalf("database.Migrate() error: %v", err)
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
}

func testReport(start time.Time) sart.Report {
	rec := func(phase sart.Phase, round, index, digit int, latency float64) sart.TrialRecord {
		isTarget := digit == sart.TargetDigit
		return sart.TrialRecord{
			Phase:       phase,
			Round:       round,
			Index:       index,
			Digit:       digit,
			IsTarget:    isTarget,
			Responded:   latency > 0,
			LatencyMs:   latency,
			Outcome:     sart.Classify(isTarget, latency > 0),
			PresentedAt: start.Add(time.Duration(index) * 2050 * time.Millisecond),
		}
	}
	return sart.Report{
		Practice: sart.Result{TotalTrials: 1, CorrectResponses: 1, AverageRT: 300, Accuracy: 100},
		Rounds: []sart.RoundResult{
			{RoundNumber: 1, Result: sart.Result{TotalTrials: 2, CorrectResponses: 1, AverageRT: 300, Accuracy: 100}},
			{RoundNumber: 2, Result: sart.Result{TotalTrials: 2, CorrectResponses: 1, OmissionErrors: 1, AverageRT: 500, Accuracy: 50}},
		},
		Overall: sart.Result{TotalTrials: 4, CorrectResponses: 2, OmissionErrors: 1, AverageRT: 400, Accuracy: 75},
		Trials: []sart.TrialRecord{
			rec(sart.PhasePractice, 0, 1, 5, 300),
			rec(sart.PhaseTest, 1, 1, 7, 300),
			rec(sart.PhaseTest, 1, 2, 3, 0),
			rec(sart.PhaseTest, 2, 1, 4, 500),
			rec(sart.PhaseTest, 2, 2, 9, 0),
		},
		StartedAt:   start,
		CompletedAt: start.Add(5 * time.Minute),
	}
}

func TestSaveAndLoadSARTResult(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	summary, trials, err := BuildSARTResult(ResultMeta{SessionID: "s-1", Participant: "p-1", FillerVersion: "v1", Rounds: 2}, testReport(start))
	if err != nil {
		t.Fatalf("BuildSARTResult() error: %v", err)
	}
	if len(summary.RoundResults) != 2 || len(trials) != 5 {
		t.Fatalf("built %d rounds and %d trials, want 2 and 5", len(summary.RoundResults), len(trials))
	}
	if got := []int64(summary.RoundResults[0].Digits); len(got) != 2 || got[0] != 7 || got[1] != 3 {
		t.Errorf("round 1 digits = %v, want [7 3]", got)
	}
	if summary.OmissionErrorRate != 1.0/3 {
		t.Errorf("OmissionErrorRate = %v, want 1/3", summary.OmissionErrorRate)
	}

	if err := SaveSARTResultTx(ctx, &summary, trials); err != nil {
		t.Fatalf("SaveSARTResultTx() error: %v", err)
	}
	if summary.ID == 0 {
		t.Fatal("summary ID not set after save")
	}

	got, err := GetSARTResultBySession(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSARTResultBySession() error: %v", err)
	}
	if got.Accuracy != 75 || got.AverageReactionTime != 400 {
		t.Errorf("loaded accuracy/RT = %v/%v, want 75/400", got.Accuracy, got.AverageReactionTime)
	}
	if len(got.RoundResults) != 2 || got.RoundResults[1].RoundNumber != 2 {
		t.Errorf("loaded rounds = %+v", got.RoundResults)
	}

	stored, err := GetSARTTrials(ctx, got.ID)
	if err != nil {
		t.Fatalf("GetSARTTrials() error: %v", err)
	}
	if len(stored) != 5 {
		t.Fatalf("GetSARTTrials() returned %d trials, want 5", len(stored))
	}
	if stored[2].ResponseTime != nil || stored[2].Outcome != "correct_non_response" {
		t.Errorf("trial 3 = %+v, want a withheld target", stored[2])
	}
}

func TestSaveRepeatedAttempts(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	for attempt, accuracy := range []float64{60, 80} {
		report := testReport(start.Add(time.Duration(attempt) * 10 * time.Minute))
		report.Overall.Accuracy = accuracy
		summary, trials, err := BuildSARTResult(ResultMeta{SessionID: "s-1", Attempt: attempt + 1, Participant: "p-1", Rounds: 2}, report)
		if err != nil {
			t.Fatal(err)
		}
		if err := SaveSARTResultTx(ctx, &summary, trials); err != nil {
			t.Fatalf("attempt %d: SaveSARTResultTx() error: %v", attempt+1, err)
		}
	}

	var n int64
	database.DB.Model(&models.SARTResult{}).Where("session_id = ?", "s-1").Count(&n)
	if n != 2 {
		t.Errorf("stored %d results for s-1, want 2", n)
	}
	got, err := GetSARTResultBySession(ctx, "s-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempt != 2 || got.Accuracy != 80 {
		t.Errorf("latest = attempt %d accuracy %v, want attempt 2 accuracy 80", got.Attempt, got.Accuracy)
	}

	dup, trials, _ := BuildSARTResult(ResultMeta{SessionID: "s-1", Attempt: 2}, testReport(start))
	if err := SaveSARTResultTx(ctx, &dup, trials); err == nil {
		t.Error("saving attempt 2 twice succeeded, want a unique constraint error")
	}
}

func TestGetSARTResultBySessionMissing(t *testing.T) {
	setupDB(t)
	if _, err := GetSARTResultBySession(context.Background(), "nope"); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("GetSARTResultBySession() error = %v, want ErrResultNotFound", err)
	}
}

func TestGetTimelineData(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"s-2", "s-1"} {
		report := testReport(day.AddDate(0, 0, 1-i))
		report.Overall.Accuracy = float64(60 + 10*i)
		summary, trials, err := BuildSARTResult(ResultMeta{SessionID: id, Participant: "p-1", Rounds: 2}, report)
		if err != nil {
			t.Fatal(err)
		}
		if err := SaveSARTResultTx(ctx, &summary, trials); err != nil {
			t.Fatal(err)
		}
	}

	data, err := GetTimelineData(ctx, "p-1", "accuracy")
	if err != nil {
		t.Fatalf("GetTimelineData() error: %v", err)
	}
	if len(data) != 2 {
		t.Fatalf("GetTimelineData() returned %d points, want 2", len(data))
	}
	if data[0].Value != 70 || data[1].Value != 60 {
		t.Errorf("values = %v, %v, want 70, 60 in completion order", data[0].Value, data[1].Value)
	}

	if _, err := GetTimelineData(ctx, "p-1", "bogus"); err == nil {
		t.Error("GetTimelineData() with an unknown metric returned nil error")
	}
}
