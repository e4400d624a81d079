package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"sart-go/internal/models"
	"sart-go/internal/repository"
	"sart-go/views"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"
)

// CspNonceContextKey is where the router stores the request's CSP nonce.
const CspNonceContextKey = "csp_nonce"

type ResultsHandler struct {
	log *zap.Logger
}

func NewResultsHandler(log *zap.Logger) *ResultsHandler {
	return &ResultsHandler{log: log}
}

// load fetches the stored result named by the :session parameter and writes
// the error response itself when it cannot.
func (h *ResultsHandler) load(c *gin.Context) (*models.SARTResult, bool) {
	sessionID := c.Param("session")
	result, err := repository.GetSARTResultBySession(c.Request.Context(), sessionID)
	if errors.Is(err, repository.ErrResultNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No result for this session"})
		return nil, false
	}
	if err != nil {
		h.log.Error("Failed to load result", zap.Error(err), zap.String("session", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load result"})
		return nil, false
	}
	return result, true
}

// Show returns the stored summary. ?trials=true adds the trial log.
func (h *ResultsHandler) Show(c *gin.Context) {
	result, ok := h.load(c)
	if !ok {
		return
	}
	body := gin.H{"result": result}
	if c.Query("trials") == "true" {
		trials, err := repository.GetSARTTrials(c.Request.Context(), result.ID)
		if err != nil {
			h.log.Error("Failed to load trials", zap.Error(err), zap.Int("resultID", result.ID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load trials"})
			return
		}
		body["trials"] = trials
	}
	c.JSON(http.StatusOK, body)
}

// Chart returns echarts options. The default view compares rounds; view=history
// plots a metric across the participant's sessions.
func (h *ResultsHandler) Chart(c *gin.Context) {
	result, ok := h.load(c)
	if !ok {
		return
	}

	if c.Query("view") != "history" {
		c.JSON(http.StatusOK, generateRoundsChart(result).JSON())
		return
	}

	metricKey := c.DefaultQuery("metric", "accuracy")
	metricLabel := ""
	for _, m := range repository.TimelineMetrics {
		if m.Value == metricKey {
			metricLabel = m.Label
		}
	}
	if metricLabel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown metric", "metrics": repository.TimelineMetrics})
		return
	}

	timelineData, err := repository.GetTimelineData(c.Request.Context(), result.Participant, metricKey)
	if err != nil {
		h.log.Error("Failed to get timeline data", zap.Error(err), zap.String("participant", result.Participant), zap.String("metricKey", metricKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load timeline data"})
		return
	}
	c.JSON(http.StatusOK, generateTimelineChart(timelineData, metricLabel).JSON())
}

// Report renders the HTML results page.
func (h *ResultsHandler) Report(c *gin.Context) {
	result, ok := h.load(c)
	if !ok {
		return
	}

	optionsJSON, err := json.Marshal(generateRoundsChart(result).JSON())
	if err != nil {
		h.log.Error("Failed to encode chart", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to render report")
		return
	}
	nonce := c.GetString(CspNonceContextKey)

	data := views.ReportData{
		SessionID:   result.SessionID,
		Participant: result.Participant,
		CompletedAt: result.CompletedAt,
		Overall: views.ReportRow{
			Label:            "Overall",
			TotalTrials:      result.TotalTrials,
			CorrectResponses: result.CorrectResponses,
			CommissionErrors: result.CommissionErrors,
			OmissionErrors:   result.OmissionErrors,
			AverageRT:        result.AverageReactionTime,
			Accuracy:         result.Accuracy,
		},
		RTSD:         result.ReactionTimeSD,
		ChartOptions: optionsJSON,
		Nonce:        nonce,
	}
	for _, r := range result.RoundResults {
		data.Rows = append(data.Rows, views.ReportRow{
			Label:            fmt.Sprintf("Round %d", r.RoundNumber),
			TotalTrials:      r.TotalTrials,
			CorrectResponses: r.CorrectResponses,
			CommissionErrors: r.CommissionErrors,
			OmissionErrors:   r.OmissionErrors,
			AverageRT:        r.AverageReactionTime,
			Accuracy:         r.Accuracy,
		})
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err = views.Layout("SART results", nonce).Render(
		templ.WithChildren(c.Request.Context(), views.Report(data)),
		c.Writer,
	)
	if err != nil {
		h.log.Error("Error rendering report", zap.Error(err))
	}
}

func generateRoundsChart(result *models.SARTResult) *charts.Bar {
	labels := make([]string, 0, len(result.RoundResults))
	accuracy := make([]opts.BarData, 0, len(result.RoundResults))
	reaction := make([]opts.LineData, 0, len(result.RoundResults))
	for _, r := range result.RoundResults {
		labels = append(labels, fmt.Sprintf("Round %d", r.RoundNumber))
		accuracy = append(accuracy, opts.BarData{Value: r.Accuracy})
		reaction = append(reaction, opts.LineData{Value: r.AverageReactionTime})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Performance by Round",
			Subtitle: fmt.Sprintf("Overall accuracy %.1f%%", result.Accuracy),
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: labels}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "%", Min: 0, Max: 100}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.ExtendYAxis(opts.YAxis{Type: "value", Name: "ms", Scale: opts.Bool(true)})
	bar.AddSeries("Accuracy (%)", accuracy)

	line := charts.NewLine()
	line.AddSeries("Average RT (ms)", reaction, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))
	bar.Overlap(line)
	return bar
}

func generateTimelineChart(data []repository.TimelineDataPoint, metricLabel string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Metric Over Time",
			Subtitle: metricLabel,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	// Create data points in the format [date, value]
	items := make([]opts.LineData, 0, len(data))
	for _, point := range data {
		items = append(items, opts.LineData{Value: []interface{}{point.Date, point.Value}})
	}

	line.AddSeries(metricLabel, items).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}
