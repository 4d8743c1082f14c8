package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/tracking"
)

// TrackingController exposes the tracking service over HTTP.
type TrackingController struct {
	svc *tracking.Service
}

// NewTrackingController creates a controller for svc.
func NewTrackingController(svc *tracking.Service) *TrackingController {
	return &TrackingController{svc: svc}
}

// StartTrackingInput is the body of POST /tracking/start.
type StartTrackingInput struct {
	OrderID     string `json:"orderId" binding:"omitempty,max=128"`
	Origin      string `json:"origin" binding:"required,max=512"`
	Destination string `json:"destination" binding:"required,max=512"`
	VehicleType string `json:"vehicleType" binding:"omitempty,max=32"`
}

// DeliveryDetailsResponse mirrors tracking.Details with the route as GeoJSON.
type DeliveryDetailsResponse struct {
	tracking.Details
	Route json.RawMessage `json:"route"`
}

// StartTracking begins simulating a delivery. A missing orderId is generated.
func (tc *TrackingController) StartTracking(c *gin.Context) {
	var input StartTrackingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tracking input: " + err.Error()})
		return
	}
	if input.OrderID == "" {
		input.OrderID = uuid.NewString()
	}

	task, err := tc.svc.Start(c.Request.Context(), tracking.StartRequest{
		OrderID:     input.OrderID,
		Origin:      input.Origin,
		Destination: input.Destination,
		VehicleType: input.VehicleType,
	})
	switch {
	case errors.Is(err, tracking.ErrAlreadyTracking):
		c.JSON(http.StatusConflict, gin.H{"error": "Order " + input.OrderID + " is already being tracked"})
		return
	case errors.Is(err, tracking.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, tracking.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Tracking service is shutting down"})
		return
	case err != nil:
		logrus.WithError(err).WithField("order_id", input.OrderID).Error("Failed to start delivery tracking.")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to start tracking: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"orderId":         task.OrderID,
		"status":          "started",
		"routeSource":     task.RouteSource,
		"distanceMeters":  task.TotalDistanceMeters,
		"durationSeconds": int(task.PlannedDuration / time.Second),
		"eta":             tracking.FormatETA(task.PlannedDuration),
	})
}

// StopTracking cancels a delivery; stopping an inactive order is not an error.
func (tc *TrackingController) StopTracking(c *gin.Context) {
	orderID := c.Param("orderId")
	stopped := tc.svc.Stop(orderID)
	c.JSON(http.StatusOK, gin.H{"orderId": orderID, "stopped": stopped})
}

// ListActive returns the ids of deliveries in flight.
func (tc *TrackingController) ListActive(c *gin.Context) {
	orders := tc.svc.Active()
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// GetTracking returns position, ETA, progress and route for one delivery.
func (tc *TrackingController) GetTracking(c *gin.Context) {
	orderID := c.Param("orderId")
	d, ok := tc.svc.Details(orderID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order " + orderID + " is not being tracked"})
		return
	}
	c.JSON(http.StatusOK, detailsResponse(d))
}

// ListActiveDetails returns position, ETA, progress and route per delivery.
func (tc *TrackingController) ListActiveDetails(c *gin.Context) {
	details := tc.svc.ActiveDetails()
	out := make([]DeliveryDetailsResponse, 0, len(details))
	for _, d := range details {
		out = append(out, detailsResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": out, "count": len(out)})
}

func detailsResponse(d tracking.Details) DeliveryDetailsResponse {
	route, err := routeGeoJSON(d.Route)
	if err != nil {
		logrus.WithError(err).WithField("order_id", d.OrderID).Warn("Failed to encode route as GeoJSON.")
		route = json.RawMessage("null")
	}
	return DeliveryDetailsResponse{Details: d, Route: route}
}

// routeGeoJSON renders coordinates as a GeoJSON LineString.
func routeGeoJSON(coords []models.Coordinate) (json.RawMessage, error) {
	if len(coords) == 0 {
		return json.RawMessage("null"), nil
	}
	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		flat = append(flat, c.Lng, c.Lat)
	}
	b, err := gjson.Marshal(geom.NewLineStringFlat(geom.XY, flat))
	if err != nil {
		return nil, err
	}
	return b, nil
}
