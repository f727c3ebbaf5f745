package services

import (
	"context"
	"errors"

	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/AnshRaj112/talkback-backend/pkg/utils"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Sessions is the token store the account service signs owners into.
type Sessions interface {
	Create(ctx context.Context, ownerID uuid.UUID) (string, error)
	Validate(ctx context.Context, token string) (uuid.UUID, bool, error)
	Invalidate(ctx context.Context, token string) error
}

type AccountService struct {
	owners   repository.OwnerRepository
	sessions Sessions
}

func NewAccountService(owners repository.OwnerRepository, sessions Sessions) *AccountService {
	return &AccountService{owners: owners, sessions: sessions}
}

// SignUp creates an owner account. Returns repository.ErrEmailTaken on duplicates.
func (s *AccountService) SignUp(ctx context.Context, email, password string) (*models.Owner, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	owner := &models.Owner{ID: uuid.New(), Email: email, PasswordHash: hash}
	if err := s.owners.Create(ctx, owner); err != nil {
		return nil, err
	}
	return owner, nil
}

// SignIn verifies credentials and opens a session, replacing any earlier one.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (string, *models.Owner, error) {
	owner, err := s.owners.GetByEmail(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	ok, err := utils.VerifyPassword(password, owner.PasswordHash)
	if err != nil || !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, owner.ID)
	if err != nil {
		return "", nil, err
	}
	return token, owner, nil
}

func (s *AccountService) SignOut(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

// Authenticate resolves a bearer token to an owner id.
func (s *AccountService) Authenticate(ctx context.Context, token string) (uuid.UUID, bool, error) {
	return s.sessions.Validate(ctx, token)
}

func (s *AccountService) Owner(ctx context.Context, ownerID uuid.UUID) (*models.Owner, error) {
	return s.owners.GetByID(ctx, ownerID)
}
