package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// SARTResult holds the overall metrics of one completed SART session.
type SARTResult struct {
	ID        int    `gorm:"primaryKey"`
	SessionID string `gorm:"uniqueIndex:idx_sart_results_session_attempt;size:36"`
	// Attempt numbers the completions of one session; a reset after the
	// results starts the next one.
	Attempt             int    `gorm:"uniqueIndex:idx_sart_results_session_attempt"`
	Participant         string `gorm:"index"`
	FillerVersion       string
	Rounds              int
	TotalTrials         int
	CorrectResponses    int
	CommissionErrors    int
	OmissionErrors      int
	Accuracy            float64
	AverageReactionTime float64
	ReactionTimeSD      float64
	CommissionErrorRate float64
	OmissionErrorRate   float64
	PracticeAccuracy    float64
	RawData             json.RawMessage `gorm:"type:jsonb"`
	StartedAt           time.Time
	CompletedAt         time.Time
	CreatedAt           time.Time

	RoundResults []SARTRound `gorm:"foreignKey:ResultID"`
}

// SARTRound is the frozen result of one test round.
type SARTRound struct {
	ID                  int `gorm:"primaryKey"`
	ResultID            int `gorm:"index"`
	RoundNumber         int
	TotalTrials         int
	CorrectResponses    int
	CommissionErrors    int
	OmissionErrors      int
	Accuracy            float64
	AverageReactionTime float64
	ReactionTimeSD      float64
	Digits              pq.Int64Array `gorm:"type:integer[]"`
}

// SARTTrial represents a single scored trial, practice included.
type SARTTrial struct {
	ID           int `gorm:"primaryKey"`
	ResultID     int `gorm:"index"`
	Phase        string
	RoundNumber  int
	TrialIndex   int
	Digit        int
	IsTarget     bool
	Responded    bool
	ResponseTime *float64 // Pointer to allow null
	Outcome      string
	PresentedAt  time.Time
}
