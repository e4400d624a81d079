package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"sart-go/internal/models"
	"sart-go/internal/sart"
	"sart-go/internal/services"
	"sart-go/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// SessionIDKey is the cookie session key holding the participant's SART session id.
	SessionIDKey = "sart_session"
	// EntryContextKey is where the router stores the loaded registry entry.
	EntryContextKey = "sart_entry"
)

type SARTHandler struct {
	log      *zap.Logger
	registry *services.Registry
	filler   *models.FillerCatalog
}

func NewSARTHandler(log *zap.Logger, registry *services.Registry, filler *models.FillerCatalog) *SARTHandler {
	return &SARTHandler{log: log, registry: registry, filler: filler}
}

type createSessionRequest struct {
	Participant   string `json:"participant" form:"participant"`
	FillerVersion string `json:"fillerVersion" form:"fillerVersion"`
}

type transitionResponse struct {
	Applied  bool          `json:"applied"`
	Snapshot sart.Snapshot `json:"snapshot"`
}

type respondResponse struct {
	Response sart.Response `json:"response"`
	Snapshot sart.Snapshot `json:"snapshot"`
}

// entryFrom returns the session entry loaded by the router.
func entryFrom(c *gin.Context) *services.Entry {
	return c.MustGet(EntryContextKey).(*services.Entry)
}

// CreateSession registers a new session and binds it to the caller's cookie.
func (h *SARTHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}
	participant, ok := utils.NormalizeParticipantID(req.Participant)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant id"})
		return
	}

	entry, err := h.registry.Create(participant, req.FillerVersion)
	if errors.Is(err, models.ErrUnknownFillerVersion) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("Failed to create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create session"})
		return
	}

	session := sessions.Default(c)
	if prev, ok := session.Get(SessionIDKey).(string); ok && prev != entry.ID {
		h.registry.Remove(prev)
	}
	session.Set(SessionIDKey, entry.ID)
	if err := session.Save(); err != nil {
		h.registry.Remove(entry.ID)
		h.log.Error("Failed to save session cookie", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId":     entry.ID,
		"participant":   entry.Participant,
		"fillerVersion": entry.FillerVersion,
		"snapshot":      entry.Session.Snapshot(),
	})
}

func (h *SARTHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, entryFrom(c).Session.Snapshot())
}

func (h *SARTHandler) Start(c *gin.Context) {
	e := entryFrom(c)
	h.transition(c, e, e.Session.Start)
}

func (h *SARTHandler) Begin(c *gin.Context) {
	e := entryFrom(c)
	h.transition(c, e, e.Session.BeginRealTest)
}

func (h *SARTHandler) NextRound(c *gin.Context) {
	e := entryFrom(c)
	h.transition(c, e, e.Session.AdvanceToNextRound)
}

func (h *SARTHandler) Reset(c *gin.Context) {
	e := entryFrom(c)
	e.Session.Reset()
	c.JSON(http.StatusOK, transitionResponse{Applied: true, Snapshot: e.Session.Snapshot()})
}

// transition applies a phase change. A refused change leaves the session
// untouched and answers 409 with the current snapshot.
func (h *SARTHandler) transition(c *gin.Context, e *services.Entry, apply func() bool) {
	applied := apply()
	status := http.StatusOK
	if !applied {
		status = http.StatusConflict
		h.log.Debug("Transition refused", zap.String("session", e.ID), zap.String("path", c.FullPath()))
	}
	c.JSON(status, transitionResponse{Applied: applied, Snapshot: e.Session.Snapshot()})
}

// Respond records a key press at the time the request is handled.
func (h *SARTHandler) Respond(c *gin.Context) {
	e := entryFrom(c)
	r := e.Session.RespondNow()
	c.JSON(http.StatusOK, respondResponse{Response: r, Snapshot: e.Session.Snapshot()})
}

// Filler returns the between-rounds content for a round of the participant's playlist.
func (h *SARTHandler) Filler(c *gin.Context) {
	e := entryFrom(c)
	round, err := strconv.Atoi(c.Param("round"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid round"})
		return
	}
	item, err := h.filler.ForRound(e.FillerVersion, round)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"round": round, "version": e.FillerVersion, "item": item})
}
