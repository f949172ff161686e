// router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/boundary/controller"
	"github.com/dev-mohitbeniwal/boundary/ingress"
	"github.com/dev-mohitbeniwal/boundary/middleware"
)

func SetupRouter(
	accessController *controller.AccessController,
	verifier *ingress.Verifier,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Signature verification gates everything under /slack.
	slack := router.Group("/slack")
	slack.Use(verifier.Middleware())
	accessController.RegisterRoutes(slack)

	return router
}
