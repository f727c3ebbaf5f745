package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/aggregate"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/middleware"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/AnshRaj112/talkback-backend/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second

	MessageSnapshot = "snapshot"
	MessageMetrics  = "metrics"
)

// Hub hands out per-owner event subscriptions.
type Hub interface {
	Register(ownerID uuid.UUID) *services.Subscriber
	Unregister(s *services.Subscriber)
}

// DashboardMessage is pushed to the owner's dashboard socket.
type DashboardMessage struct {
	Type    string                       `json:"type"`
	ItemID  string                       `json:"item_id,omitempty"`
	Metrics *aggregate.Metrics           `json:"metrics,omitempty"`
	Items   map[string]aggregate.Metrics `json:"items,omitempty"`
}

type DashboardHandler struct {
	auth     middleware.Authenticator
	items    repository.ItemRepository
	feedback repository.FeedbackRepository
	hub      Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewDashboardHandler(auth middleware.Authenticator, items repository.ItemRepository, feedback repository.FeedbackRepository, hub Hub, allowedOrigins []string, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		auth:     auth,
		items:    items,
		feedback: feedback,
		hub:      hub,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				for _, a := range allowedOrigins {
					if strings.EqualFold(strings.TrimSpace(a), origin) {
						return true
					}
				}
				return false
			},
		},
	}
}

// Serve upgrades GET /ws/dashboard. Browsers cannot set headers on a socket,
// so the token may also come from ?token=.
func (h *DashboardHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}
	ownerID, ok, err := h.auth.Authenticate(r.Context(), token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.hub.Register(ownerID)
	defer h.hub.Unregister(sub)

	// Reader: only pongs and close frames matter.
	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap, err := h.snapshot(ctx, ownerID); err != nil {
		h.log.Warn("dashboard snapshot failed", "owner_id", ownerID, "error", err)
	} else if err := h.write(conn, snap); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			msg, err := h.itemMetrics(ctx, ownerID, ev.ItemID)
			if err != nil {
				h.log.Warn("dashboard metrics refresh failed", "item_id", ev.ItemID, "error", err)
				continue
			}
			if err := h.write(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *DashboardHandler) write(conn *websocket.Conn, msg DashboardMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}

func (h *DashboardHandler) snapshot(ctx context.Context, ownerID uuid.UUID) (DashboardMessage, error) {
	items, err := h.items.ListByOwner(ctx, ownerID)
	if err != nil {
		return DashboardMessage{}, err
	}
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	rows, err := h.feedback.ListByItems(ctx, ids)
	if err != nil {
		return DashboardMessage{}, err
	}
	out := make(map[string]aggregate.Metrics, len(items))
	for id, m := range aggregate.ComputeAll(items, rows) {
		out[id.String()] = m
	}
	return DashboardMessage{Type: MessageSnapshot, Items: out}, nil
}

// itemMetrics recomputes one item from the store; the event only names it.
func (h *DashboardHandler) itemMetrics(ctx context.Context, ownerID uuid.UUID, rawID string) (DashboardMessage, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return DashboardMessage{}, err
	}
	item, err := h.items.GetByID(ctx, id)
	if err != nil {
		return DashboardMessage{}, err
	}
	if item.OwnerID != ownerID {
		return DashboardMessage{}, repository.ErrNotFound
	}
	rows, err := h.feedback.ListByItem(ctx, id)
	if err != nil {
		return DashboardMessage{}, err
	}
	m := aggregate.Compute(rows, item.RatingMode)
	return DashboardMessage{Type: MessageMetrics, ItemID: rawID, Metrics: &m}, nil
}
