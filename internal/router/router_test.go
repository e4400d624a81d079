package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"sart-go/internal/config"
	"sart-go/internal/database"
	"sart-go/internal/models"
	"sart-go/internal/repository"
	"sart-go/internal/sart"
	"sart-go/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var testEpoch = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// client replays cookies and the CSRF token the way a browser script would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	csrf    string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrf != "" {
		req.Header.Set(CSRFTokenHeaderKey, c.csrf)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	if tok := rec.Header().Get(CSRFTokenHeaderKey); tok != "" {
		c.csrf = tok
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func setup(t *testing.T) (*client, *services.Registry) {
	t.Helper()
	log := zap.NewNop()

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, log)
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Migrate(db, log); err != nil {
		t.Fatal(err)
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	catalog := &models.FillerCatalog{Playlists: []models.FillerPlaylist{
		{Version: "v1", Items: []models.FillerItem{{Title: "Video 1", URL: "/assets/videos/video-1.mp4"}}},
	}}
	registry := services.NewRegistry(log, services.RegistryOptions{
		Filler:  catalog,
		NewLoop: func() *sart.Loop { return sart.NewManualLoop(testEpoch) },
	})
	t.Cleanup(registry.Close)

	cfg := config.ServerConfig{SessionSecret: "test-secret", SessionTTL: time.Hour}
	r := Setup(log, cfg, registry, catalog)
	return &client{t: t, handler: r, cookies: make(map[string]*http.Cookie)}, registry
}

type snapshotBody struct {
	Phase     string `json:"phase"`
	Digit     *int   `json:"digit"`
	Countdown *int   `json:"countdown"`
	Feedback  any    `json:"feedback"`
}

func TestSessionLifecycle(t *testing.T) {
	c, registry := setup(t)

	if rec := c.do(http.MethodGet, "/sart/state", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /sart/state without session = %d, want 404", rec.Code)
	}
	if c.csrf == "" {
		t.Fatal("no CSRF token issued")
	}

	token := c.csrf
	c.csrf = "forged"
	if rec := c.do(http.MethodPost, "/sart/sessions", gin.H{"participant": "p-1"}); rec.Code != http.StatusForbidden {
		t.Fatalf("POST with a forged token = %d, want 403", rec.Code)
	}
	c.csrf = token

	if rec := c.do(http.MethodPost, "/sart/sessions", gin.H{"participant": "bad id!"}); rec.Code != http.StatusBadRequest {
		t.Errorf("POST with invalid participant = %d, want 400", rec.Code)
	}
	if rec := c.do(http.MethodPost, "/sart/sessions", gin.H{"participant": "p-1", "fillerVersion": "v7"}); rec.Code != http.StatusBadRequest {
		t.Errorf("POST with unknown filler = %d, want 400", rec.Code)
	}

	rec := c.do(http.MethodPost, "/sart/sessions", gin.H{"participant": "p-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /sart/sessions = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		SessionID     string `json:"sessionId"`
		FillerVersion string `json:"fillerVersion"`
	}](t, rec)
	if created.FillerVersion != "v1" {
		t.Errorf("fillerVersion = %q, want v1", created.FillerVersion)
	}
	entry, err := registry.Get(created.SessionID)
	if err != nil {
		t.Fatal(err)
	}

	rec = c.do(http.MethodGet, "/sart/state", nil)
	if got := decode[snapshotBody](t, rec); rec.Code != http.StatusOK || got.Phase != "instructions" {
		t.Fatalf("state = %d %+v, want 200 instructions", rec.Code, got)
	}

	rec = c.do(http.MethodPost, "/sart/begin", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("POST /sart/begin from instructions = %d, want 409", rec.Code)
	}

	rec = c.do(http.MethodPost, "/sart/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /sart/start = %d", rec.Code)
	}
	started := decode[struct {
		Applied  bool         `json:"applied"`
		Snapshot snapshotBody `json:"snapshot"`
	}](t, rec)
	if !started.Applied || started.Snapshot.Phase != "practice" || started.Snapshot.Countdown == nil || *started.Snapshot.Countdown != 3 {
		t.Errorf("start = %+v, want practice with countdown 3", started)
	}

	resp := decode[struct {
		Response string `json:"response"`
	}](t, c.do(http.MethodPost, "/sart/respond", nil))
	if resp.Response != "no_trial" {
		t.Errorf("respond during countdown = %q, want no_trial", resp.Response)
	}

	entry.Loop.Advance(sart.CountdownFrom*sart.CountdownStep + 200*time.Millisecond)
	resp = decode[struct {
		Response string `json:"response"`
	}](t, c.do(http.MethodPost, "/sart/respond", nil))
	if resp.Response != "accepted" {
		t.Errorf("respond inside the window = %q, want accepted", resp.Response)
	}

	rec = c.do(http.MethodGet, "/sart/filler/1", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "video-1.mp4") {
		t.Errorf("GET /sart/filler/1 = %d %s", rec.Code, rec.Body.String())
	}
	if rec := c.do(http.MethodGet, "/sart/filler/4", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET /sart/filler/4 = %d, want 404", rec.Code)
	}

	rec = c.do(http.MethodPost, "/sart/reset", nil)
	if got := decode[struct {
		Snapshot snapshotBody `json:"snapshot"`
	}](t, rec); got.Snapshot.Phase != "instructions" {
		t.Errorf("phase after reset = %q, want instructions", got.Snapshot.Phase)
	}
	if n := entry.Loop.Pending(); n != 0 {
		t.Errorf("%d timers pending after reset", n)
	}

	// An evicted session clears the cookie binding.
	registry.Remove(created.SessionID)
	if rec := c.do(http.MethodGet, "/sart/state", nil); rec.Code != http.StatusNotFound {
		t.Errorf("state after eviction = %d, want 404", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	c, _ := setup(t)
	rec := c.do(http.MethodGet, "/sart/state", nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-Xss-Protection":       "1; mode=block",
	}
	for header, expected := range want {
		if got := rec.Header().Get(header); got != expected {
			t.Errorf("header %s = %q, want %q", header, got, expected)
		}
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "'nonce-") {
		t.Errorf("Content-Security-Policy = %q, want a nonce", csp)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("no request id header")
	}
}

func TestResultsEndpoints(t *testing.T) {
	c, _ := setup(t)

	report := sart.Report{
		Rounds: []sart.RoundResult{
			{RoundNumber: 1, Result: sart.Result{TotalTrials: 50, CorrectResponses: 38, CommissionErrors: 5, OmissionErrors: 2, AverageRT: 320, Accuracy: 86}},
		},
		Overall:     sart.Result{TotalTrials: 50, CorrectResponses: 38, CommissionErrors: 5, OmissionErrors: 2, AverageRT: 320, Accuracy: 86},
		StartedAt:   testEpoch,
		CompletedAt: testEpoch.Add(4 * time.Minute),
	}
	meta := repository.ResultMeta{SessionID: "s-42", Participant: "p-1", FillerVersion: "v1", Rounds: 1}
	if err := services.SaveReport(context.Background(), meta, report); err != nil {
		t.Fatalf("SaveReport() error: %v", err)
	}

	rec := c.do(http.MethodGet, "/results/s-42", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /results/s-42 = %d", rec.Code)
	}
	body := decode[struct {
		Result models.SARTResult `json:"result"`
	}](t, rec)
	if body.Result.Accuracy != 86 || len(body.Result.RoundResults) != 1 {
		t.Errorf("result = %+v", body.Result)
	}

	rec = c.do(http.MethodGet, "/results/s-42/chart", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Performance by Round") {
		t.Errorf("GET chart = %d %s", rec.Code, rec.Body.String())
	}
	rec = c.do(http.MethodGet, "/results/s-42/chart?view=history&metric=reaction_time", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Metric Over Time") {
		t.Errorf("GET history chart = %d %s", rec.Code, rec.Body.String())
	}
	if rec := c.do(http.MethodGet, "/results/s-42/chart?view=history&metric=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("GET history chart with bogus metric = %d, want 400", rec.Code)
	}

	rec = c.do(http.MethodGet, "/results/s-42/report", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<td>Round 1</td>") {
		t.Errorf("GET report = %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("report Content-Type = %q", ct)
	}

	if rec := c.do(http.MethodGet, "/results/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET /results/nope = %d, want 404", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	c, _ := setup(t)
	rec := c.do(http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sart_sessions_active") {
		t.Errorf("GET /metrics = %d", rec.Code)
	}
}
