package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const feedbackColumns = `id, item_id, rating, originality, usefulness, engagement, comment, created_at`

type PostgresFeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

func (r *PostgresFeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (`+feedbackColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fb.ID, fb.ItemID, fb.Rating, fb.Originality, fb.Usefulness, fb.Engagement, fb.Comment, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *PostgresFeedbackRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Feedback, error) {
	grouped, err := r.ListByItems(ctx, []uuid.UUID{itemID})
	if err != nil {
		return nil, err
	}
	return grouped[itemID], nil
}

func (r *PostgresFeedbackRepository) ListByItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]models.Feedback, error) {
	out := make(map[uuid.UUID][]models.Feedback, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+feedbackColumns+` FROM feedback
		WHERE item_id = ANY($1::uuid[])
		ORDER BY created_at DESC, id DESC`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fb                   models.Feedback
			orig, useful, engage sql.NullInt64
			comment              sql.NullString
		)
		if err := rows.Scan(&fb.ID, &fb.ItemID, &fb.Rating, &orig, &useful, &engage, &comment, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.Originality = nullInt(orig)
		fb.Usefulness = nullInt(useful)
		fb.Engagement = nullInt(engage)
		if comment.Valid {
			fb.Comment = &comment.String
		}
		out[fb.ItemID] = append(out[fb.ItemID], fb)
	}
	return out, rows.Err()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
