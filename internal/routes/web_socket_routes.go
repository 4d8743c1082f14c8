package routes

import (
	"github.com/gin-gonic/gin"

	"delivery_tracker/internal/controllers"
	"delivery_tracker/internal/middleware"
)

func WebSocketRoutes(r *gin.Engine, wc *controllers.WebSocketController, auth *middleware.Auth) {
	wsRoutes := r.Group("/ws")
	wsRoutes.Use(auth.RequireAuth())
	{
		wsRoutes.GET("/tracking", wc.HandleTrackingStream)
		wsRoutes.GET("/delivery/:orderId", wc.HandleDeliveryStream)
	}
}
