package views

import (
	"encoding/json"
	"strconv"
	"time"
)

// ReportRow is one line of the results table.
type ReportRow struct {
	Label            string
	TotalTrials      int
	CorrectResponses int
	CommissionErrors int
	OmissionErrors   int
	AverageRT        float64
	Accuracy         float64
}

// ReportData is everything the results page shows.
type ReportData struct {
	SessionID   string
	Participant string
	CompletedAt time.Time
	Rows        []ReportRow
	Overall     ReportRow
	RTSD        float64
	// ChartOptions is the encoded echarts configuration.
	ChartOptions json.RawMessage
	Nonce        string
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
