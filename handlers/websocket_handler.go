package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub          *realtime.Hub
	upgrader     websocket.Upgrader
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewWebSocketHandler builds the subscription endpoint. allowedOrigins
// follows the CORS list; "*" accepts any origin.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string, pollInterval time.Duration, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

type helloFrame struct {
	Type                string `json:"type"`
	Topic               string `json:"topic"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
}

// checkTopic accepts tournament:<id>, team_match:<id> and the caller's own
// user:<id>.
func checkTopic(topic string, actor models.Actor) error {
	kind, idStr, ok := strings.Cut(topic, ":")
	if !ok {
		return fmt.Errorf("invalid topic %q", topic)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid topic id in %q", topic)
	}
	switch kind {
	case "tournament", "team_match":
		return nil
	case "user":
		if id != actor.ID {
			return fmt.Errorf("cannot subscribe to another user's feed")
		}
		return nil
	}
	return fmt.Errorf("unknown topic kind %q", kind)
}

// ServeWs handles GET /ws/{topic}. Events only announce changes; clients
// re-fetch the snapshot, and fall back to polling it every
// poll_interval_seconds when the socket is down.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	topic := chi.URLParam(r, "topic")
	if err := checkTopic(topic, actor); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.String("topic", topic), zap.Error(err))
		return
	}

	hello, err := json.Marshal(helloFrame{
		Type:                "hello",
		Topic:               topic,
		PollIntervalSeconds: int(h.pollInterval / time.Second),
	})
	if err != nil {
		h.logger.Error("failed to marshal hello frame", zap.Error(err))
		conn.Close()
		return
	}

	client := realtime.NewClient(h.hub, conn, topic)
	client.Send <- hello
	if !h.hub.Join(client) {
		conn.Close()
		return
	}
	h.logger.Debug("websocket client joined", zap.String("topic", topic), zap.Int("user_id", actor.ID))

	go client.WritePump(h.logger)
	go client.ReadPump(h.logger)
}
