package router

import (
	"net/http"

	"sart-go/internal/handlers"
	"sart-go/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionLoader looks up the SART session named in the cookie and adds it
// to the context. A cookie naming an evicted session is cleared so the
// participant starts over as a fresh visitor.
func SessionLoader(registry *services.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(handlers.SessionIDKey).(string)
		if !ok {
			c.Next()
			return
		}

		entry, err := registry.Get(id)
		if err != nil {
			session.Delete(handlers.SessionIDKey)
			session.Save()
			c.Next()
			return
		}

		c.Set(handlers.EntryContextKey, entry)
		c.Next()
	}
}

// SessionRequired rejects requests without a live SART session.
func SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(handlers.EntryContextKey); !exists {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": services.ErrSessionNotFound.Error()})
			return
		}
		c.Next()
	}
}
