package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sart-go/internal/database"
	"sart-go/internal/metrics"
	"sart-go/internal/models"
	"sart-go/internal/sart"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrResultNotFound is returned when no result exists for a session.
var ErrResultNotFound = errors.New("result not found")

// ResultMeta identifies who took a session and under which settings.
type ResultMeta struct {
	SessionID string
	// Attempt is the 1-based completion count within the session.
	Attempt       int
	Participant   string
	FillerVersion string
	Rounds        int
}

// BuildSARTResult converts a finished session report into its database rows.
func BuildSARTResult(meta ResultMeta, report sart.Report) (models.SARTResult, []models.SARTTrial, error) {
	data := &metrics.SARTData{Trials: report.Trials}
	derived := metrics.Derive(data, 0)

	raw, err := json.Marshal(report)
	if err != nil {
		return models.SARTResult{}, nil, fmt.Errorf("failed to encode raw data: %w", err)
	}

	attempt := meta.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	summary := models.SARTResult{
		SessionID:           meta.SessionID,
		Attempt:             attempt,
		Participant:         meta.Participant,
		FillerVersion:       meta.FillerVersion,
		Rounds:              meta.Rounds,
		TotalTrials:         report.Overall.TotalTrials,
		CorrectResponses:    report.Overall.CorrectResponses,
		CommissionErrors:    report.Overall.CommissionErrors,
		OmissionErrors:      report.Overall.OmissionErrors,
		Accuracy:            report.Overall.Accuracy,
		AverageReactionTime: report.Overall.AverageRT,
		ReactionTimeSD:      derived.ReactionTimeSD,
		CommissionErrorRate: derived.CommissionErrorRate,
		OmissionErrorRate:   derived.OmissionErrorRate,
		PracticeAccuracy:    report.Practice.Accuracy,
		RawData:             raw,
		StartedAt:           report.StartedAt,
		CompletedAt:         report.CompletedAt,
	}

	for _, r := range report.Rounds {
		trials := data.TestTrials(r.RoundNumber)
		digits := make(pq.Int64Array, len(trials))
		for i, t := range trials {
			digits[i] = int64(t.Digit)
		}
		summary.RoundResults = append(summary.RoundResults, models.SARTRound{
			RoundNumber:         r.RoundNumber,
			TotalTrials:         r.TotalTrials,
			CorrectResponses:    r.CorrectResponses,
			CommissionErrors:    r.CommissionErrors,
			OmissionErrors:      r.OmissionErrors,
			Accuracy:            r.Accuracy,
			AverageReactionTime: r.AverageRT,
			ReactionTimeSD:      metrics.CalculateSARTReactionTimeSD(trials),
			Digits:              digits,
		})
	}

	trials := make([]models.SARTTrial, len(report.Trials))
	for i, t := range report.Trials {
		trials[i] = models.SARTTrial{
			Phase:       t.Phase.String(),
			RoundNumber: t.Round,
			TrialIndex:  t.Index,
			Digit:       t.Digit,
			IsTarget:    t.IsTarget,
			Responded:   t.Responded,
			Outcome:     t.Outcome.String(),
			PresentedAt: t.PresentedAt,
		}
		if t.Responded {
			rt := t.LatencyMs
			trials[i].ResponseTime = &rt
		}
	}
	return summary, trials, nil
}

// SaveSARTResultTx saves the summary, its rounds and every trial in a single transaction.
func SaveSARTResultTx(ctx context.Context, summary *models.SARTResult, trials []models.SARTTrial) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if summary.CreatedAt.IsZero() {
			summary.CreatedAt = time.Now().UTC()
		}
		// 1. Insert summary and rounds, which fills in the IDs
		if err := tx.Create(summary).Error; err != nil {
			return err
		}
		if len(trials) == 0 {
			return nil
		}

		// 2. Insert all trials referencing the summary ID
		for i := range trials {
			trials[i].ResultID = summary.ID
		}
		return tx.CreateInBatches(trials, 100).Error
	})
}

// GetSARTResultBySession loads the latest attempt of a session with its rounds.
func GetSARTResultBySession(ctx context.Context, sessionID string) (*models.SARTResult, error) {
	var result models.SARTResult
	err := database.DB.WithContext(ctx).
		Preload("RoundResults", func(db *gorm.DB) *gorm.DB { return db.Order("round_number") }).
		Where("session_id = ?", sessionID).
		Order("attempt desc").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSARTTrials returns the trials of a result in presentation order.
func GetSARTTrials(ctx context.Context, resultID int) ([]models.SARTTrial, error) {
	var trials []models.SARTTrial
	err := database.DB.WithContext(ctx).
		Where("result_id = ?", resultID).
		Order("id").
		Find(&trials).Error
	return trials, err
}
