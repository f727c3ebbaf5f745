package services

import (
	"context"
	"sync"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shareEventsCollection = "share_events"

// AuditLog records code publishes and relay forwards in MongoDB. A nil
// database disables it; every method is then a no-op.
type AuditLog struct {
	col *mongo.Collection
	log *logger.Logger
	wg  sync.WaitGroup
}

func NewAuditLog(db *mongo.Database, log *logger.Logger) *AuditLog {
	if log == nil {
		log = logger.Nop()
	}
	a := &AuditLog{log: log}
	if db != nil {
		a.col = db.Collection(shareEventsCollection)
	}
	return a
}

func (a *AuditLog) Enabled() bool {
	return a != nil && a.col != nil
}

// EnsureIndexes is called on startup after Mongo has connected.
func (a *AuditLog) EnsureIndexes(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	_, err := a.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "item_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_item_created"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_owner_created"),
		},
	})
	return err
}

// RecordAsync persists ev without blocking the caller.
func (a *AuditLog) RecordAsync(ev models.ShareEvent) {
	if !a.Enabled() {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	a.wg.Add(1)
	go func(e models.ShareEvent) {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := a.col.InsertOne(ctx, e); err != nil {
			a.log.Warn("share event not recorded", "kind", e.Kind, "item_id", e.ItemID, "error", err)
		}
	}(ev)
}

// Recent returns the newest events for one item, at most limit.
func (a *AuditLog) Recent(ctx context.Context, itemID string, limit int64) ([]models.ShareEvent, error) {
	if !a.Enabled() {
		return []models.ShareEvent{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := a.col.Find(ctx, bson.M{"item_id": itemID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []models.ShareEvent{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Wait blocks until in-flight writes finish; used on shutdown.
func (a *AuditLog) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
