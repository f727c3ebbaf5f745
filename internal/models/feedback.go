package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is one anonymous response. Rating always holds the overall 1-5
// score; in detailed mode it is the rounded mean of the three sub-ratings.
type Feedback struct {
	ID          uuid.UUID `json:"id"`
	ItemID      uuid.UUID `json:"item_id"`
	Rating      int       `json:"rating"`
	Originality *int      `json:"originality,omitempty"`
	Usefulness  *int      `json:"usefulness,omitempty"`
	Engagement  *int      `json:"engagement,omitempty"`
	Comment     *string   `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

// FeedbackInput is the body of POST /f/{slug}.
type FeedbackInput struct {
	Rating      *int   `json:"rating"`
	Originality *int   `json:"originality"`
	Usefulness  *int   `json:"usefulness"`
	Engagement  *int   `json:"engagement"`
	Comment     string `json:"comment"`
}
