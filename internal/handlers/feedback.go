package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/aggregate"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/AnshRaj112/talkback-backend/internal/services"
	"github.com/AnshRaj112/talkback-backend/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// FeedbackPublisher announces new responses to live dashboards.
type FeedbackPublisher interface {
	Publish(ctx context.Context, ev services.FeedbackEvent) error
}

type FormResponse struct {
	Success bool              `json:"success"`
	Item    models.PublicItem `json:"item"`
}

type SubmitResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Feedback *models.Feedback `json:"feedback,omitempty"`
}

type ResultsResponse struct {
	Success   bool              `json:"success"`
	Item      models.PublicItem `json:"item"`
	Metrics   aggregate.Metrics `json:"metrics"`
	Responses []models.Feedback `json:"responses"`
}

// PublicHandler serves the slug-addressed pages. No session is required.
type PublicHandler struct {
	items    repository.ItemRepository
	feedback repository.FeedbackRepository
	events   FeedbackPublisher
	log      *logger.Logger
}

func NewPublicHandler(items repository.ItemRepository, feedback repository.FeedbackRepository, events FeedbackPublisher, log *logger.Logger) *PublicHandler {
	return &PublicHandler{items: items, feedback: feedback, events: events, log: log}
}

// GetForm handles GET /f/{slug}.
func (h *PublicHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemBySlug(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FormResponse{Success: true, Item: item.Public()})
}

// Submit handles POST /f/{slug}. Everything is validated before the insert.
func (h *PublicHandler) Submit(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemBySlug(w, r)
	if !ok {
		return
	}

	var in models.FeedbackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fb, err := buildFeedback(item, in)
	if err != nil {
		if !writeValidation(w, err) {
			writeFailure(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := h.feedback.Create(r.Context(), fb); err != nil {
		h.log.Error("store feedback failed", "item_id", item.ID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to submit feedback")
		return
	}

	ev := services.FeedbackEvent{
		Type:      services.EventFeedbackCreated,
		ItemID:    item.ID.String(),
		OwnerID:   item.OwnerID.String(),
		Timestamp: fb.CreatedAt,
	}
	if err := h.events.Publish(r.Context(), ev); err != nil {
		h.log.Warn("publish feedback event failed", "item_id", item.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{Success: true, Message: "Thanks for your feedback", Feedback: fb})
}

// Results handles GET /feedback/{slug}: metrics plus every response.
func (h *PublicHandler) Results(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemBySlug(w, r)
	if !ok {
		return
	}
	rows, err := h.feedback.ListByItem(r.Context(), item.ID)
	if err != nil {
		h.log.Error("list feedback failed", "item_id", item.ID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to fetch feedback")
		return
	}
	rows = aggregate.NewestFirst(rows)
	writeJSON(w, http.StatusOK, ResultsResponse{
		Success:   true,
		Item:      item.Public(),
		Metrics:   aggregate.Compute(rows, item.RatingMode),
		Responses: rows,
	})
}

func (h *PublicHandler) itemBySlug(w http.ResponseWriter, r *http.Request) (*models.Item, bool) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeFailure(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	item, err := h.items.GetBySlug(r.Context(), slug)
	if errors.Is(err, repository.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("load item by slug failed", "slug", slug, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to load item")
		return nil, false
	}
	return item, true
}

func buildFeedback(item *models.Item, in models.FeedbackInput) (*models.Feedback, error) {
	fb := &models.Feedback{ID: uuid.New(), ItemID: item.ID, CreatedAt: time.Now().UTC()}

	if item.RatingMode == models.RatingDetailed {
		subs := []struct {
			field string
			v     *int
		}{
			{"originality", in.Originality},
			{"usefulness", in.Usefulness},
			{"engagement", in.Engagement},
		}
		for _, s := range subs {
			if s.v == nil {
				return nil, &utils.ValidationError{Field: s.field, Message: "Please rate " + s.field}
			}
			if err := utils.ValidateRating(s.field, *s.v); err != nil {
				return nil, err
			}
		}
		fb.Originality, fb.Usefulness, fb.Engagement = in.Originality, in.Usefulness, in.Engagement
		fb.Rating = aggregate.OverallRating(*in.Originality, *in.Usefulness, *in.Engagement)
	} else {
		if in.Rating == nil {
			return nil, &utils.ValidationError{Field: "rating", Message: "Please select a rating"}
		}
		if err := utils.ValidateRating("rating", *in.Rating); err != nil {
			return nil, err
		}
		fb.Rating = *in.Rating
	}

	comment, err := utils.NormalizeComment(in.Comment)
	if err != nil {
		return nil, err
	}
	fb.Comment = comment
	return fb, nil
}
