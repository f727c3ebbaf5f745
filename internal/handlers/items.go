package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/aggregate"
	"github.com/AnshRaj112/talkback-backend/internal/codeimage"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/middleware"
	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/AnshRaj112/talkback-backend/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const slugAttempts = 3

// CodePublisher runs the code image pipeline for an item.
type CodePublisher interface {
	PublishOnce(ctx context.Context, job codeimage.Job) (*codeimage.Result, error)
	Retry(ctx context.Context, job codeimage.Job) (*codeimage.Result, error)
}

type Relayer interface {
	Forward(ctx context.Context, body []byte) (string, error)
	ForwardValue(ctx context.Context, v interface{}) (string, error)
}

type Auditor interface {
	RecordAsync(ev models.ShareEvent)
	Recent(ctx context.Context, itemID string, limit int64) ([]models.ShareEvent, error)
}

// Site describes where public links point and the default export sizes.
type Site struct {
	PublicSiteURL string
	ExportSize    int
	ShareSize     int
}

func (s Site) FeedbackURL(slug string) string {
	return strings.TrimRight(s.PublicSiteURL, "/") + "/f/" + slug
}

// ItemView is an item as the owner sees it on the dashboard.
type ItemView struct {
	models.Item
	FeedbackURL string             `json:"feedback_url"`
	Metrics     *aggregate.Metrics `json:"metrics,omitempty"`
}

type CreateItemRequest struct {
	Kind       models.ItemKind   `json:"kind"`
	Title      string            `json:"title"`
	Label      string            `json:"label"`
	Category   string            `json:"category"`
	RatingMode models.RatingMode `json:"rating_mode"`
}

type ItemResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Item      *ItemView         `json:"item,omitempty"`
	QRError   string            `json:"qr_error,omitempty"`
	Responses []models.Feedback `json:"responses,omitempty"`
}

type ItemsResponse struct {
	Success bool       `json:"success"`
	Items   []ItemView `json:"items"`
	Total   int        `json:"total"`
}

type CodeResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	QRCodeURL string `json:"qr_code_url,omitempty"`
	Stage     string `json:"stage,omitempty"`
}

// SharePayload is what the relay receives when an owner shares an item.
type SharePayload struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Label       string `json:"label"`
	Category    string `json:"category"`
	FeedbackURL string `json:"feedback_url"`
	QRCodeURL   string `json:"qr_code_url"`
}

type ShareResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	RelayResponse string `json:"relay_response,omitempty"`
}

type EventsResponse struct {
	Success bool                `json:"success"`
	Events  []models.ShareEvent `json:"events"`
}

type ItemHandler struct {
	items    repository.ItemRepository
	feedback repository.FeedbackRepository
	codes    CodePublisher
	relay    Relayer
	audit    Auditor
	site     Site
	log      *logger.Logger

	pollAttempts int
	pollInterval time.Duration
}

func NewItemHandler(items repository.ItemRepository, feedback repository.FeedbackRepository, codes CodePublisher, relay Relayer, audit Auditor, site Site, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		items:        items,
		feedback:     feedback,
		codes:        codes,
		relay:        relay,
		audit:        audit,
		site:         site,
		log:          log,
		pollAttempts: 10,
		pollInterval: 100 * time.Millisecond,
	}
}

// Create registers an item and publishes its code image once.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.OwnerID(r.Context())

	var req CreateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := h.validateCreate(ownerID, req)
	if err != nil {
		writeValidation(w, err)
		return
	}

	for attempt := 1; ; attempt++ {
		item.Slug = utils.Slugify(item.Title, string(item.Kind))
		err = h.items.Create(r.Context(), item)
		if !errors.Is(err, repository.ErrSlugTaken) || attempt == slugAttempts {
			break
		}
		h.log.Warn("slug collision, regenerating", "slug", item.Slug)
	}
	if err != nil {
		h.log.Error("create item failed", "owner_id", ownerID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to create item")
		return
	}

	resp := ItemResponse{Success: true, Message: "Item created"}
	res, err := h.codes.PublishOnce(r.Context(), h.job(item))
	if err != nil {
		h.log.Warn("code image not published on create", "item_id", item.ID, "error", err)
		resp.QRError = err.Error()
	} else {
		item.QRCodeURL = &res.PublicURL
		h.recordPublish(item, res)
	}

	resp.Item = h.view(item, nil)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ItemHandler) validateCreate(ownerID uuid.UUID, req CreateItemRequest) (*models.Item, error) {
	item := &models.Item{ID: uuid.New(), OwnerID: ownerID, Kind: req.Kind, RatingMode: req.RatingMode}
	if item.Kind == "" {
		item.Kind = models.KindSpeaker
	}
	if !item.Kind.Valid() {
		return nil, &utils.ValidationError{Field: "kind", Message: "Kind must be speaker or deck"}
	}
	if item.RatingMode == "" {
		item.RatingMode = models.RatingSingle
	}
	if !item.RatingMode.Valid() {
		return nil, &utils.ValidationError{Field: "rating_mode", Message: "Rating mode must be single or detailed"}
	}

	labels := map[models.ItemKind][3]string{
		models.KindSpeaker: {"Talk title", "Speaker name", "Event"},
		models.KindDeck:    {"Deck name", "Author", "Industry"},
	}[item.Kind]

	var err error
	if item.Title, err = utils.RequireText("title", labels[0], req.Title); err != nil {
		return nil, err
	}
	if item.Label, err = utils.RequireText("label", labels[1], req.Label); err != nil {
		return nil, err
	}
	if item.Category, err = utils.RequireText("category", labels[2], req.Category); err != nil {
		return nil, err
	}
	return item, nil
}

// List is the owner dashboard: every owned item with its metrics.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.OwnerID(r.Context())

	items, err := h.items.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.log.Error("list items failed", "owner_id", ownerID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to fetch items")
		return
	}

	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	rows, err := h.feedback.ListByItems(r.Context(), ids)
	if err != nil {
		h.log.Error("list feedback failed", "owner_id", ownerID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to fetch feedback")
		return
	}

	metrics := aggregate.ComputeAll(items, rows)
	views := make([]ItemView, 0, len(items))
	for i := range items {
		m := metrics[items[i].ID]
		views = append(views, *h.view(&items[i], &m))
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Success: true, Items: views, Total: len(views)})
}

// Get returns one owned item with metrics and every response.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
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
	m := aggregate.Compute(rows, item.RatingMode)
	writeJSON(w, http.StatusOK, ItemResponse{Success: true, Item: h.view(item, &m), Responses: rows})
}

// RegenerateCode re-runs the publish. Safe to repeat: the upload overwrites.
func (h *ItemHandler) RegenerateCode(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}
	res, err := h.codes.Retry(r.Context(), h.job(item))
	if err != nil {
		stage, _ := codeimage.FailedStage(err)
		h.log.Warn("code image retry failed", "item_id", item.ID, "stage", stage, "error", err)
		writeJSON(w, http.StatusInternalServerError, CodeResponse{Success: false, Message: "Failed to publish code image", Stage: string(stage)})
		return
	}
	h.recordPublish(item, res)
	writeJSON(w, http.StatusOK, CodeResponse{Success: true, QRCodeURL: res.PublicURL})
}

// DownloadCode streams the code image as an attachment without storing it.
// PNG defaults to the export size, JPEG to the smaller share size.
func (h *ItemHandler) DownloadCode(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}
	format, err := codeimage.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Format must be png or jpg")
		return
	}
	opts := codeimage.RasterOptions{Size: h.site.ExportSize}
	if format == codeimage.FormatJPEG {
		opts.Size = h.site.ShareSize
	}
	q := r.URL.Query()
	if raw := q.Get("size"); raw != "" {
		if opts.Size, err = strconv.Atoi(raw); err != nil {
			writeFailure(w, http.StatusBadRequest, "Size must be a number")
			return
		}
	}
	if on, _ := strconv.ParseBool(q.Get("caption")); on {
		opts.Caption = item.Title
	}

	data, err := codeimage.Export(h.site.FeedbackURL(item.Slug), opts, format)
	if errors.Is(err, codeimage.ErrSizeOutOfRange) {
		writeFailure(w, http.StatusBadRequest, fmt.Sprintf("Size must be between %d and %d", codeimage.MinSize, codeimage.MaxSize))
		return
	}
	if err != nil {
		h.log.Error("code image export failed", "item_id", item.ID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to render code image")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-qr.%s"`, item.Slug, format.Ext()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Share waits briefly for the item's code image URL, then pushes the item
// through the webhook relay.
func (h *ItemHandler) Share(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	qrURL, err := h.waitForCode(r.Context(), item)
	if err != nil {
		writeFailure(w, http.StatusGatewayTimeout, "Code image is not ready yet. Try again shortly.")
		return
	}

	payload := SharePayload{
		Slug:        item.Slug,
		Title:       item.Title,
		Label:       item.Label,
		Category:    item.Category,
		FeedbackURL: h.site.FeedbackURL(item.Slug),
		QRCodeURL:   qrURL,
	}
	reply, err := h.relay.ForwardValue(r.Context(), payload)
	event := models.ShareEvent{
		Kind:    models.ShareEventRelayed,
		ItemID:  item.ID.String(),
		OwnerID: item.OwnerID.String(),
		Target:  "relay",
		Status:  "ok",
	}
	if err != nil {
		event.Status = "failed"
		h.audit.RecordAsync(event)
		h.log.Warn("share relay failed", "item_id", item.ID, "error", err)
		writeFailure(w, http.StatusBadGateway, "Failed to share item")
		return
	}
	h.audit.RecordAsync(event)
	writeJSON(w, http.StatusOK, ShareResponse{Success: true, Message: "Shared", RelayResponse: reply})
}

// Events lists the item's recent publish and share events.
func (h *ItemHandler) Events(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}
	events, err := h.audit.Recent(r.Context(), item.ID.String(), 20)
	if err != nil {
		h.log.Error("load share events failed", "item_id", item.ID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, EventsResponse{Success: true, Events: events})
}

// waitForCode polls the store for the image URL: a readiness wait, not a retry.
func (h *ItemHandler) waitForCode(ctx context.Context, item *models.Item) (string, error) {
	if item.QRCodeURL != nil && *item.QRCodeURL != "" {
		return *item.QRCodeURL, nil
	}
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	for i := 0; i < h.pollAttempts; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		fresh, err := h.items.GetByID(ctx, item.ID)
		if err != nil {
			continue
		}
		if fresh.QRCodeURL != nil && *fresh.QRCodeURL != "" {
			return *fresh.QRCodeURL, nil
		}
	}
	return "", errors.New("code image not ready")
}

// ownedItem loads {id} and writes 404 unless the session owner owns it.
func (h *ItemHandler) ownedItem(w http.ResponseWriter, r *http.Request) (*models.Item, bool) {
	ownerID, _ := middleware.OwnerID(r.Context())
	id, ok := uuidParam(r, "id")
	if !ok {
		writeFailure(w, http.StatusNotFound, "Item not found")
		return nil, false
	}
	item, err := h.items.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && item.OwnerID != ownerID) {
		writeFailure(w, http.StatusNotFound, "Item not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("load item failed", "item_id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to fetch item")
		return nil, false
	}
	return item, true
}

func (h *ItemHandler) job(item *models.Item) codeimage.Job {
	return codeimage.Job{OwnerID: item.OwnerID, ItemID: item.ID, URL: h.site.FeedbackURL(item.Slug)}
}

func (h *ItemHandler) recordPublish(item *models.Item, res *codeimage.Result) {
	h.audit.RecordAsync(models.ShareEvent{
		Kind:    models.ShareEventCodePublished,
		ItemID:  item.ID.String(),
		OwnerID: item.OwnerID.String(),
		Target:  res.Key,
		Status:  "ok",
	})
}

func (h *ItemHandler) view(item *models.Item, m *aggregate.Metrics) *ItemView {
	return &ItemView{Item: *item, FeedbackURL: h.site.FeedbackURL(item.Slug), Metrics: m}
}
