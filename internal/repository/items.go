package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/google/uuid"
)

const itemColumns = `id, owner_id, kind, title, label, category, slug, rating_mode, qr_code_url, created_at`

type PostgresItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

func (r *PostgresItemRepository) Create(ctx context.Context, item *models.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO items (id, owner_id, kind, title, label, category, slug, rating_mode, qr_code_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.OwnerID, item.Kind, item.Title, item.Label, item.Category,
		item.Slug, item.RatingMode, item.QRCodeURL, item.CreatedAt)
	if isUniqueViolation(err, "items_slug_key") {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *PostgresItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return r.getOne(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

func (r *PostgresItemRepository) GetBySlug(ctx context.Context, slug string) (*models.Item, error) {
	return r.getOne(ctx, `SELECT `+itemColumns+` FROM items WHERE slug = $1`, slug)
}

func (r *PostgresItemRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *PostgresItemRepository) SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET qr_code_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("update qr_code_url: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update qr_code_url: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresItemRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Item, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item models.Item
		qr   sql.NullString
	)
	err := row.Scan(&item.ID, &item.OwnerID, &item.Kind, &item.Title, &item.Label,
		&item.Category, &item.Slug, &item.RatingMode, &qr, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	if qr.Valid {
		item.QRCodeURL = &qr.String
	}
	return &item, nil
}
