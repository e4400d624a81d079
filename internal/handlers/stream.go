package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"sart-go/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

type StreamHandler struct {
	log            *zap.Logger
	hub            *services.Hub
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool
}

// NewStreamHandler builds the websocket handler. With no allowed origins
// only same-host and localhost origins are accepted.
func NewStreamHandler(log *zap.Logger, hub *services.Hub, allowedOrigins []string) *StreamHandler {
	h := &StreamHandler{
		log:            log,
		hub:            hub,
		allowedOrigins: make(map[string]bool),
	}
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			h.allowedOrigins[trimmed] = true
		}
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) > 0 {
		return h.allowedOrigins[origin]
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	return parsed.Hostname() == "localhost" || parsed.Hostname() == "127.0.0.1"
}

// Stream pushes the session's snapshot on every change until either side
// goes away.
func (h *StreamHandler) Stream(c *gin.Context) {
	e := entryFrom(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(e.ID)
	defer h.hub.Unsubscribe(e.ID, sub)
	h.log.Debug("Stream client connected", zap.String("session", e.ID), zap.String("remote", c.Request.RemoteAddr))

	// The client never sends anything useful; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, e.Session.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case snap, ok := <-sub.C():
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.write(conn, snap); err != nil {
				h.log.Debug("Stream client too slow or gone", zap.String("session", e.ID), zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
