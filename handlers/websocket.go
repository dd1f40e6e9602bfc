package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"travellog/config"
	"travellog/geo"
	"travellog/logger"
	"travellog/mapview"
	"travellog/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsSendBuffer   = 64
	wsCloseTimeout = time.Second
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
	errBadMessage = errors.New("bad message")
)

// checkOrigin lets through non-browser clients (no Origin), the same origin and ALLOWED_ORIGINS
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	for _, allowed := range config.AllowedOrigins() {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// MapViewWebSocket streams the events of a mounted view and accepts view operations from the client.
// A view has at most one stream. The view is unmounted when the connection closes, and the
// connection is closed when the view is unmounted elsewhere (sign out, DELETE, idle sweep).
func MapViewWebSocket(c *gin.Context, user *models.User) {
	view, err := Views.Get(c.Param("id"), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	releaseStream, err := view.AttachStream()
	if errors.Is(err, mapview.ErrStreamAttached) {
		c.JSON(http.StatusConflict, StreamBusyResponse)
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	defer releaseStream()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Info("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	// The socket is the lifetime of the view
	defer func() { _ = Views.Unmount(view.ID, user.ID) }()

	// All writes go through out, the connection has a single writer
	out := make(chan []byte, wsSendBuffer)
	done := make(chan struct{})
	defer close(done)
	send := func(data []byte) bool {
		select {
		case out <- data:
			return true
		case <-done:
			return false
		default:
			// Slow reader, drop it
			conn.Close()
			return false
		}
	}
	sendJSON := func(v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			return false
		}
		return send(data)
	}
	go func() {
		for {
			select {
			case data := <-out:
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					logger.L.Debug("websocket write", zap.String("view", view.ID), zap.Error(err))
					conn.Close()
					return
				}
			case <-view.Done():
				// Unmounted elsewhere, the read cycle ends once the connection is closed
				message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "view unmounted")
				_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(wsCloseTimeout))
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	unsubscribe := view.Subscribe(func(e mapview.Event) {
		sendJSON(e)
	})
	defer unsubscribe()
	sendJSON(WSStateMessage{Type: WSMessageTypeState, State: view.State()})

	// Main read cycle
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logger.L.Debug("websocket read", zap.String("view", view.ID), zap.Error(err))
			break
		}
		switch string(message) {
		case "ping":
			send([]byte("pong"))
			continue
		case "pong":
			continue
		}
		if err = processViewMessage(view, message); err != nil {
			sendJSON(WSErrorMessage{Type: WSMessageTypeError, Error: err.Error()})
		}
	}
}

func processViewMessage(view *mapview.View, data []byte) error {
	msg := WSMessage{}
	if err := json.Unmarshal(data, &msg); err != nil {
		return errBadMessage
	}
	switch msg.Type {
	case WSMessageTypeLayout:
		return view.LayoutReady(geo.Size{Width: msg.Width, Height: msg.Height})
	case WSMessageTypeClick:
		if msg.Lat == nil || msg.Lng == nil {
			return errBadMessage
		}
		selectPoint(view, geo.LatLng{Lat: *msg.Lat, Lng: *msg.Lng})
	case WSMessageTypeClear:
		view.ClearSelection()
	case WSMessageTypeEnter:
		view.PointerEnter()
	case WSMessageTypeLeave:
		view.PointerLeave()
	default:
		return errBadMessage
	}
	return nil
}
