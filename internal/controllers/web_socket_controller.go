package controllers

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"delivery_tracker/internal/hub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ActiveLister reports the deliveries in flight.
type ActiveLister interface {
	Active() []string
}

// ConnectedMessage is the first frame on the all-deliveries stream.
type ConnectedMessage struct {
	Status           string   `json:"status"`
	Message          string   `json:"message"`
	Timestamp        string   `json:"timestamp"`
	ActiveDeliveries []string `json:"activeDeliveries"`
}

// WebSocketController streams tracking updates to WebSocket clients.
type WebSocketController struct {
	hub      *hub.Hub
	active   ActiveLister
	upgrader websocket.Upgrader
}

// NewWebSocketController serves subscriptions from h. active may be nil, in
// which case no snapshot is sent on connect. With no allowedOrigins any
// origin may connect.
func NewWebSocketController(h *hub.Hub, active ActiveLister, allowedOrigins []string) *WebSocketController {
	return &WebSocketController{
		hub:    h,
		active: active,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleTrackingStream streams every delivery's updates, starting with a
// snapshot of the deliveries already in flight.
func (wc *WebSocketController) HandleTrackingStream(c *gin.Context) {
	wc.serve(c, hub.GlobalTopic, false)
}

// HandleDeliveryStream streams one order's updates and closes the socket
// after its terminal update.
func (wc *WebSocketController) HandleDeliveryStream(c *gin.Context) {
	orderID := c.Param("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}
	wc.serve(c, hub.OrderTopic(orderID), true)
}

func (wc *WebSocketController) serve(c *gin.Context, topic string, closeOnTerminal bool) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	sub := wc.hub.Subscribe(topic)
	defer sub.Close()

	log := logrus.WithFields(logrus.Fields{
		"topic":    topic,
		"conn_ptr": fmt.Sprintf("%p", conn),
	})
	log.Info("Tracking subscriber connected.")

	if topic == hub.GlobalTopic && wc.active != nil {
		if err := wc.sendSnapshot(conn); err != nil {
			log.WithError(err).Warn("Failed to send active deliveries snapshot.")
			return
		}
	}

	done := make(chan struct{})
	go wc.readPump(conn, log, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Info("Tracking subscriber disconnected.")
			return
		case update, ok := <-sub.C:
			if !ok {
				wc.closeNormally(conn, "server shutting down")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(update); err != nil {
				log.WithError(err).Warn("Failed to send tracking update to client.")
				return
			}
			if closeOnTerminal && update.Status.Terminal() {
				wc.closeNormally(conn, "delivery "+string(update.Status))
				log.WithField("status", update.Status).Info("Delivery finished; closing subscriber.")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Debug("Ping failed; dropping subscriber.")
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
// Subscribers are not expected to send data.
func (wc *WebSocketController) readPump(conn *websocket.Conn, log *logrus.Entry, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("WebSocket read ended.")
			}
			return
		}
		log.Warn("Subscriber sent unexpected message. Ignoring.")
	}
}

func (wc *WebSocketController) sendSnapshot(conn *websocket.Conn) error {
	ids := wc.active.Active()
	if ids == nil {
		ids = []string{}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ConnectedMessage{
		Status:           "CONNECTED",
		Message:          "Connected to delivery tracking",
		Timestamp:        time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ActiveDeliveries: ids,
	})
}

func (wc *WebSocketController) closeNormally(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
