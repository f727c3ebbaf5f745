package repository

import (
	"context"
	"errors"

	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrSlugTaken  = errors.New("slug already in use")
	ErrEmailTaken = errors.New("email already registered")
)

type OwnerRepository interface {
	Create(ctx context.Context, owner *models.Owner) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Owner, error)
	GetByEmail(ctx context.Context, email string) (*models.Owner, error)
}

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	GetBySlug(ctx context.Context, slug string) (*models.Item, error)
	// ListByOwner returns the owner's items newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error)
	// SetQRCodeURL is the only mutation an item receives after insert.
	SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error
}

type FeedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	// ListByItem returns responses newest first.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Feedback, error)
	// ListByItems groups responses per item, each group newest first.
	ListByItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]models.Feedback, error)
}

const pqUniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pqUniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}
