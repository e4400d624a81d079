package router

import (
	"fmt"
	"net/http"
	"time"

	"sart-go/internal/config"
	"sart-go/internal/handlers"
	"sart-go/internal/models"
	"sart-go/internal/services"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}
func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Try again later."})
}

func Setup(log *zap.Logger, cfg config.ServerConfig, registry *services.Registry, filler *models.FillerCatalog) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.SessionTTL / time.Second),
	})
	router.Use(sessions.Sessions("sart", store))

	router.Use(NonceMiddleware())
	router.Use(func(c *gin.Context) {
		nonce := c.GetString(handlers.CspNonceContextKey)
		csp := fmt.Sprintf(
			"default-src 'self'; script-src 'self' https://cdn.jsdelivr.net 'nonce-%s'; style-src 'self' 'unsafe-inline'",
			nonce,
		)
		c.Header("Content-Security-Policy", csp)
		c.Next()
	})

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
		c.Next()
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Handlers and routes
	sartHandler := handlers.NewSARTHandler(log, registry, filler)
	streamHandler := handlers.NewStreamHandler(log, registry.Hub(), cfg.AllowedOrigins)
	resultsHandler := handlers.NewResultsHandler(log)

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 10,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	sartRoutes := router.Group("/sart")
	sartRoutes.Use(CSRFProtection(), SessionLoader(registry))
	{
		sartRoutes.POST("/sessions", limiter, sartHandler.CreateSession)

		live := sartRoutes.Group("")
		live.Use(SessionRequired())
		{
			live.GET("/state", sartHandler.State)
			live.POST("/start", sartHandler.Start)
			live.POST("/respond", sartHandler.Respond)
			live.POST("/begin", sartHandler.Begin)
			live.POST("/next-round", sartHandler.NextRound)
			live.POST("/reset", sartHandler.Reset)
			live.GET("/filler/:round", sartHandler.Filler)
			live.GET("/stream", streamHandler.Stream)
		}
	}

	resultRoutes := router.Group("/results/:session")
	{
		resultRoutes.GET("", resultsHandler.Show)
		resultRoutes.GET("/chart", resultsHandler.Chart)
		resultRoutes.GET("/report", resultsHandler.Report)
	}

	return router
}
