package models

import (
	"time"

	"github.com/google/uuid"
)

type ItemKind string

const (
	KindSpeaker ItemKind = "speaker"
	KindDeck    ItemKind = "deck"
)

func (k ItemKind) Valid() bool {
	return k == KindSpeaker || k == KindDeck
}

type RatingMode string

const (
	// RatingSingle collects one 1-5 star rating per response.
	RatingSingle RatingMode = "single"
	// RatingDetailed collects originality, usefulness and engagement separately.
	RatingDetailed RatingMode = "detailed"
)

func (m RatingMode) Valid() bool {
	return m == RatingSingle || m == RatingDetailed
}

// Item is a registered speaker talk or deck. Slug never changes after insert;
// QRCodeURL is the only field written after creation.
type Item struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Kind       ItemKind   `json:"kind"`
	Title      string     `json:"title"`
	Label      string     `json:"label"`
	Category   string     `json:"category"`
	Slug       string     `json:"slug"`
	RatingMode RatingMode `json:"rating_mode"`
	QRCodeURL  *string    `json:"qr_code_url"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PublicItem is what anonymous visitors of /f/{slug} see.
type PublicItem struct {
	Kind       ItemKind   `json:"kind"`
	Title      string     `json:"title"`
	Label      string     `json:"label"`
	Category   string     `json:"category"`
	Slug       string     `json:"slug"`
	RatingMode RatingMode `json:"rating_mode"`
}

func (i *Item) Public() PublicItem {
	return PublicItem{
		Kind:       i.Kind,
		Title:      i.Title,
		Label:      i.Label,
		Category:   i.Category,
		Slug:       i.Slug,
		RatingMode: i.RatingMode,
	}
}
