package router

import (
	"errors"
	"net/http"

	"sart-go/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Define keys for storing the token in the session and context.
const (
	csrfTokenSessionKey = "csrf_token"
	csrfTokenFormKey    = "_csrf"
	csrfTokenContextKey = "csrf_token"
	CSRFTokenHeaderKey  = "X-CSRF-Token"
)

// CSRFProtection is a custom middleware to protect against CSRF attacks.
// Every response carries the session's token in the X-CSRF-Token header, and
// unsafe methods must echo it back in the header or the _csrf form field.
func CSRFProtection() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		// 1. Get or create the real CSRF token for the session.
		token, _ := session.Get(csrfTokenSessionKey).(string)
		isNew := token == ""
		if isNew {
			newToken, err := utils.GenerateSecureToken(32)
			if err != nil {
				c.AbortWithError(http.StatusInternalServerError, errors.New("failed to generate CSRF token"))
				return
			}
			token = newToken
			session.Set(csrfTokenSessionKey, token)
			if err := session.Save(); err != nil {
				c.AbortWithError(http.StatusInternalServerError, errors.New("failed to save session"))
				return
			}
		}

		// 2. Make the token available to handlers and clients.
		c.Set(csrfTokenContextKey, token)
		c.Header(CSRFTokenHeaderKey, token)

		// 3. Validate the token on unsafe methods (POST, etc.).
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			submitted := c.GetHeader(CSRFTokenHeaderKey)
			if submitted == "" {
				submitted = c.PostForm(csrfTokenFormKey)
			}
			if isNew || submitted == "" || !utils.TokensEqual(submitted, token) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
				return
			}
		}

		c.Next()
	}
}
