package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	FeedbackChannelPrefix = "feedback:item:"
	EventFeedbackCreated  = "feedback_created"

	subscriberBuffer = 16
)

// FeedbackEvent is broadcast over Redis whenever a response is stored.
type FeedbackEvent struct {
	Type      string    `json:"type"`
	ItemID    string    `json:"item_id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber receives events for one owner's items.
type Subscriber struct {
	OwnerID uuid.UUID
	C       chan FeedbackEvent
}

// FeedbackHub fans feedback events from Redis out to local dashboard
// connections. Every instance runs one pattern subscriber.
type FeedbackHub struct {
	rdb *redis.Client
	log *logger.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]map[*Subscriber]struct{}

	startOnce sync.Once
}

func NewFeedbackHub(rdb *redis.Client, log *logger.Logger) *FeedbackHub {
	if log == nil {
		log = logger.Nop()
	}
	return &FeedbackHub{
		rdb:  rdb,
		log:  log,
		subs: make(map[uuid.UUID]map[*Subscriber]struct{}),
	}
}

func (h *FeedbackHub) Register(ownerID uuid.UUID) *Subscriber {
	s := &Subscriber{OwnerID: ownerID, C: make(chan FeedbackEvent, subscriberBuffer)}
	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[*Subscriber]struct{})
	}
	h.subs[ownerID][s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *FeedbackHub) Unregister(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[s.OwnerID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.OwnerID)
	}
	close(s.C)
}

// Dispatch delivers ev to local subscribers of its owner. Slow subscribers
// miss events rather than block the hub.
func (h *FeedbackHub) Dispatch(ev FeedbackEvent) {
	ownerID, err := uuid.Parse(ev.OwnerID)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ownerID] {
		select {
		case s.C <- ev:
		default:
			h.log.Warn("dashboard subscriber lagging; event dropped", "owner_id", ownerID, "item_id", ev.ItemID)
		}
	}
}

// Publish sends ev to every instance through Redis.
func (h *FeedbackHub) Publish(ctx context.Context, ev FeedbackEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Type == "" {
		ev.Type = EventFeedbackCreated
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, FeedbackChannelPrefix+ev.ItemID, data).Err()
}

// Start launches the Redis subscriber once; it stops with ctx.
func (h *FeedbackHub) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		go h.run(ctx)
	})
}

func (h *FeedbackHub) run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pubsub := h.rdb.PSubscribe(ctx, FeedbackChannelPrefix+"*")
		h.log.Info("feedback subscriber started", "pattern", FeedbackChannelPrefix+"*")
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				pubsub.Close()
				if ctx.Err() != nil {
					return
				}
				h.log.Warn("feedback subscriber error", "error", err, "retry_in", backoff)
				time.Sleep(backoff)
				backoff *= 2
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
				break
			}
			backoff = time.Second

			var ev FeedbackEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.Warn("bad feedback event payload", "channel", msg.Channel, "error", err)
				continue
			}
			if ev.ItemID == "" {
				ev.ItemID = strings.TrimPrefix(msg.Channel, FeedbackChannelPrefix)
			}
			h.Dispatch(ev)
		}
	}
}
