package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/fencing-club/middleware"
	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestCheckTopic(t *testing.T) {
	me := models.Actor{ID: 7, Role: models.RoleAthlete}
	tests := []struct {
		topic string
		ok    bool
	}{
		{"tournament:12", true},
		{"team_match:3", true},
		{"user:7", true},
		{"user:8", false},
		{"tournament:", false},
		{"tournament:-1", false},
		{"gym:1", false},
		{"tournament", false},
	}
	for _, tt := range tests {
		if err := checkTopic(tt.topic, me); (err == nil) != tt.ok {
			t.Errorf("checkTopic(%q) err = %v, want ok=%v", tt.topic, err, tt.ok)
		}
	}
}

func TestServeWsDeliversHelloAndEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := realtime.NewHub(zap.NewNop())
	go hub.Run(ctx)

	h := NewWebSocketHandler(hub, []string{"*"}, 5*time.Second, zap.NewNop())
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := models.Actor{ID: 1, Role: models.RoleAthlete}
			next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), actor)))
		})
	})
	router.Get("/ws/{topic}", h.ServeWs)
	srv := httptest.NewServer(router)
	defer srv.Close()

	topic := realtime.TournamentTopic(5)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello helloFrame
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" || hello.Topic != topic || hello.PollIntervalSeconds != 5 {
		t.Fatalf("hello = %+v", hello)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(topic) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the room")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(ctx, realtime.NewEvent(topic, realtime.EventUpdate, "match", 42, nil))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev realtime.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Entity != "match" || ev.EntityID != 42 || ev.Kind != realtime.EventUpdate {
		t.Fatalf("event = %+v", ev)
	}
}

func TestServeWsRejectsForeignUserTopic(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	h := NewWebSocketHandler(hub, []string{"*"}, 5*time.Second, zap.NewNop())
	router := chi.NewRouter()
	router.Get("/ws/{topic}", h.ServeWs)

	req := httptest.NewRequest(http.MethodGet, "/ws/user:2", nil)
	req = req.WithContext(middleware.WithActor(req.Context(), models.Actor{ID: 1, Role: models.RoleAthlete}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://club.example"})
	for origin, want := range map[string]bool{
		"":                     true,
		"https://club.example": true,
		"https://evil.example": false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/ws/tournament:1", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if got := check(req); got != want {
			t.Errorf("origin %q: got %v, want %v", origin, got, want)
		}
	}
}
