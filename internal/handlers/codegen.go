package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/talkback-backend/internal/codeimage"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/middleware"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/google/uuid"
)

// GenerateRequest is the body of POST /api/codes/generate. Field names follow
// the browser client.
type GenerateRequest struct {
	SpeakerID   string `json:"speakerId"`
	FeedbackURL string `json:"feedbackUrl"`
	UserID      string `json:"userId"`
}

type GenerateResponse struct {
	QRCodeURL string `json:"qr_code_url"`
}

type errorBody struct {
	Error string `json:"error"`
}

// CodegenHandler exposes the code image pipeline to the browser client. It
// checks the bearer token itself so that the error bodies keep the
// {"error": ...} shape.
type CodegenHandler struct {
	auth  middleware.Authenticator
	items repository.ItemRepository
	codes CodePublisher
	log   *logger.Logger
}

func NewCodegenHandler(auth middleware.Authenticator, items repository.ItemRepository, codes CodePublisher, log *logger.Logger) *CodegenHandler {
	return &CodegenHandler{auth: auth, items: items, codes: codes, log: log}
}

func (h *CodegenHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Missing authorization header"})
		return
	}
	token := middleware.BearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid session"})
		return
	}
	ownerID, ok, err := h.auth.Authenticate(r.Context(), token)
	if err != nil || !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid session"})
		return
	}

	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	if req.SpeakerID == "" || req.FeedbackURL == "" || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing required fields"})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil || userID != ownerID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
		return
	}
	itemID, err := uuid.Parse(req.SpeakerID)
	if err != nil {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
		return
	}
	item, err := h.items.GetByID(r.Context(), itemID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && item.OwnerID != ownerID) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
		return
	}
	if err != nil {
		h.log.Error("codegen item lookup failed", "item_id", itemID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if !strings.Contains(req.FeedbackURL, item.Slug) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "feedbackUrl does not match item"})
		return
	}

	res, err := h.codes.Retry(r.Context(), codeimage.Job{OwnerID: ownerID, ItemID: item.ID, URL: req.FeedbackURL})
	if err != nil {
		stage, _ := codeimage.FailedStage(err)
		h.log.Warn("codegen publish failed", "item_id", item.ID, "stage", stage, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{QRCodeURL: res.PublicURL})
}

// Preflight answers OPTIONS that carry no Access-Control-Request-Method.
func Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
