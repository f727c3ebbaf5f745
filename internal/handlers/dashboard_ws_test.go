package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type chanHub struct {
	registered chan *services.Subscriber
}

func (h *chanHub) Register(ownerID uuid.UUID) *services.Subscriber {
	s := &services.Subscriber{OwnerID: ownerID, C: make(chan services.FeedbackEvent, 4)}
	h.registered <- s
	return s
}

func (h *chanHub) Unregister(*services.Subscriber) {}

func TestDashboardSocketPushesMetrics(t *testing.T) {
	env := newTestEnv(t)
	ownerID, token := env.login()
	item := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"}).Item

	hub := &chanHub{registered: make(chan *services.Subscriber, 1)}
	h := NewDashboardHandler(env.sessions, env.items, env.feedback, hub, []string{"https://app.test"}, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{"Origin": []string{"https://app.test"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap DashboardMessage
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Type != MessageSnapshot || snap.Items[item.ID.String()].Count != 0 {
		t.Fatalf("snapshot=%+v", snap)
	}

	sub := <-hub.registered
	if sub.OwnerID != ownerID {
		t.Fatalf("registered owner=%s", sub.OwnerID)
	}
	if rec := env.do(http.MethodPost, "/f/"+item.Slug, "", models.FeedbackInput{Rating: intPtr(5), Comment: "Loved it"}); rec.Code != http.StatusCreated {
		t.Fatalf("submit status=%d", rec.Code)
	}
	sub.C <- env.events.events[0]

	var msg DashboardMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if msg.Type != MessageMetrics || msg.ItemID != item.ID.String() || msg.Metrics == nil || msg.Metrics.Count != 1 || msg.Metrics.Avg != 5 {
		t.Fatalf("metrics message=%+v", msg)
	}
}

func TestDashboardSocketRejectsBadSessions(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	hub := &chanHub{registered: make(chan *services.Subscriber, 1)}
	h := NewDashboardHandler(env.sessions, env.items, env.feedback, hub, []string{"https://app.test"}, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bogus", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bogus token: err=%v resp=%v", err, resp)
	}

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token="+token, http.Header{"Origin": []string{"https://evil.test"}})
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign origin: err=%v resp=%v", err, resp)
	}
	if len(hub.registered) != 0 {
		t.Fatalf("rejected sockets must not register")
	}
}
