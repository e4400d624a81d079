package repository

import (
	"context"
	"fmt"
	"time"

	"sart-go/internal/database"
	"sart-go/internal/models"
)

type TimelineDataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MetricOption is a selectable metric for the history chart.
type MetricOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// TimelineMetrics lists the metrics a participant's history can be charted by.
var TimelineMetrics = []MetricOption{
	{Value: "accuracy", Label: "Accuracy (%)"},
	{Value: "reaction_time", Label: "Average Reaction Time (ms)"},
	{Value: "reaction_time_sd", Label: "Reaction Time SD (ms)"},
	{Value: "commission_error_rate", Label: "Commission Error Rate"},
	{Value: "omission_error_rate", Label: "Omission Error Rate"},
}

func metricValue(r models.SARTResult, metricKey string) (float64, bool) {
	switch metricKey {
	case "accuracy":
		return r.Accuracy, true
	case "reaction_time":
		return r.AverageReactionTime, true
	case "reaction_time_sd":
		return r.ReactionTimeSD, true
	case "commission_error_rate":
		return r.CommissionErrorRate, true
	case "omission_error_rate":
		return r.OmissionErrorRate, true
	default:
		return 0, false
	}
}

// GetTimelineData returns one point per completed session of a participant.
func GetTimelineData(ctx context.Context, participant string, metricKey string) ([]TimelineDataPoint, error) {
	if _, ok := metricValue(models.SARTResult{}, metricKey); !ok {
		return nil, fmt.Errorf("unknown metric %q", metricKey)
	}

	var results []models.SARTResult
	err := database.DB.WithContext(ctx).
		Where("participant = ?", participant).
		Order("completed_at").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	data := make([]TimelineDataPoint, 0, len(results))
	for _, r := range results {
		v, _ := metricValue(r, metricKey)
		data = append(data, TimelineDataPoint{Date: r.CompletedAt, Value: v})
	}
	return data, nil
}
