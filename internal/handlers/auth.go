package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/middleware"
	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/AnshRaj112/talkback-backend/internal/services"
	"github.com/google/uuid"
)

// Accounts is the owner account surface used by AuthHandler.
type Accounts interface {
	SignUp(ctx context.Context, email, password string) (*models.Owner, error)
	SignIn(ctx context.Context, email, password string) (string, *models.Owner, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (uuid.UUID, bool, error)
	Owner(ctx context.Context, ownerID uuid.UUID) (*models.Owner, error)
}

type AuthHandler struct {
	accounts Accounts
	log      *logger.Logger
}

func NewAuthHandler(accounts Accounts, log *logger.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OwnerResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Token   string        `json:"token,omitempty"`
	Owner   *models.Owner `json:"owner,omitempty"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	owner, err := h.accounts.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		if errors.Is(err, repository.ErrEmailTaken) {
			writeFailure(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		h.log.Error("signup failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, OwnerResponse{Success: true, Message: "Account created", Owner: owner})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, owner, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.log.Error("signin failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	writeJSON(w, http.StatusOK, OwnerResponse{Success: true, Token: token, Owner: owner})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SignOut(r.Context(), middleware.BearerToken(r)); err != nil {
		h.log.Warn("signout failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Signed out"})
}

// Me runs behind RequireSession.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.OwnerID(r.Context())
	owner, err := h.accounts.Owner(r.Context(), ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		h.log.Error("load owner failed", "owner_id", ownerID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, OwnerResponse{Success: true, Owner: owner})
}
