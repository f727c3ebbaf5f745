package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ShareEventCodePublished = "code_published"
	ShareEventRelayed       = "relayed"
)

// ShareEvent is an audit record for a code upload or a relay forward.
type ShareEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind      string             `bson:"kind" json:"kind"`
	ItemID    string             `bson:"item_id" json:"item_id"`
	OwnerID   string             `bson:"owner_id" json:"owner_id"`
	Target    string             `bson:"target" json:"target"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
