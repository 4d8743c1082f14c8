package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"delivery_tracker/internal/controllers"
	"delivery_tracker/internal/middleware"
)

// Dependencies are the handlers and middleware mounted on the router.
type Dependencies struct {
	Tracking  *controllers.TrackingController
	WebSocket *controllers.WebSocketController
	Auth      *middleware.Auth
	AccessLog io.Writer
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Request logging middleware
	if deps.AccessLog != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithWriter(deps.AccessLog),
			ginlog.WithSkipPath([]string{"/health"}),
		))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	TrackingRoutes(r, deps.Tracking, deps.Auth)
	WebSocketRoutes(r, deps.WebSocket, deps.Auth)

	return r
}
