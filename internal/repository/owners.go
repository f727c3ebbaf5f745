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

type PostgresOwnerRepository struct {
	db *sql.DB
}

func NewOwnerRepository(db *sql.DB) *PostgresOwnerRepository {
	return &PostgresOwnerRepository{db: db}
}

func (r *PostgresOwnerRepository) Create(ctx context.Context, owner *models.Owner) error {
	if owner.ID == uuid.Nil {
		owner.ID = uuid.New()
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		owner.ID, owner.Email, owner.PasswordHash, owner.CreatedAt)
	if isUniqueViolation(err, "owners_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return nil
}

func (r *PostgresOwnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Owner, error) {
	return r.getOne(ctx, `SELECT id, email, password_hash, created_at FROM owners WHERE id = $1`, id)
}

func (r *PostgresOwnerRepository) GetByEmail(ctx context.Context, email string) (*models.Owner, error) {
	return r.getOne(ctx, `SELECT id, email, password_hash, created_at FROM owners WHERE email = $1`, email)
}

func (r *PostgresOwnerRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Owner, error) {
	var o models.Owner
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&o.ID, &o.Email, &o.PasswordHash, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select owner: %w", err)
	}
	return &o, nil
}
