package routes

import (
	"github.com/gin-gonic/gin"

	"delivery_tracker/internal/controllers"
	"delivery_tracker/internal/middleware"
)

func TrackingRoutes(r *gin.Engine, tc *controllers.TrackingController, auth *middleware.Auth) {
	tracking := r.Group("/tracking")
	{
		tracking.POST("/start", auth.RequireAuthWithRole("admin", "dispatcher"), tc.StartTracking)
		tracking.POST("/stop/:orderId", auth.RequireAuthWithRole("admin", "dispatcher"), tc.StopTracking)
		tracking.GET("/active", auth.RequireAuth(), tc.ListActive)
		tracking.GET("/active/details", auth.RequireAuth(), tc.ListActiveDetails)
		tracking.GET("/:orderId", auth.RequireAuth(), tc.GetTracking)
	}
}
