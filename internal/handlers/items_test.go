package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/AnshRaj112/talkback-backend/internal/codeimage"
	"github.com/AnshRaj112/talkback-backend/internal/models"
)

var talkSlug = regexp.MustCompile(`^my-talk-[a-z0-9]{8}$`)

func TestCreateItemPublishesCode(t *testing.T) {
	env := newTestEnv(t)
	ownerID, token := env.login()

	resp := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "GopherCon"})
	item := resp.Item
	if item == nil {
		t.Fatalf("expected item in response")
	}
	if !talkSlug.MatchString(item.Slug) {
		t.Fatalf("slug %q does not match %s", item.Slug, talkSlug)
	}
	if item.Kind != models.KindSpeaker || item.RatingMode != models.RatingSingle {
		t.Fatalf("defaults: kind=%q mode=%q", item.Kind, item.RatingMode)
	}
	if item.FeedbackURL != "https://talkback.test/f/"+item.Slug {
		t.Fatalf("feedback_url=%q", item.FeedbackURL)
	}
	if resp.QRError != "" {
		t.Fatalf("unexpected qr_error %q", resp.QRError)
	}

	key := codeimage.ObjectKey(ownerID, item.ID)
	wantURL := "https://cdn.test/qr-codes/" + key
	if item.QRCodeURL == nil || *item.QRCodeURL != wantURL {
		t.Fatalf("qr_code_url=%v want %s", item.QRCodeURL, wantURL)
	}
	data, contentType, ok := env.store.Object(key)
	if !ok || contentType != "image/png" || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("stored object: ok=%v type=%q", ok, contentType)
	}

	stored, err := env.items.GetByID(context.Background(), item.ID)
	if err != nil || stored.QRCodeURL == nil || *stored.QRCodeURL != wantURL {
		t.Fatalf("stored item not linked: %+v err=%v", stored, err)
	}
	if got := env.audit.kinds(); len(got) != 1 || got[0] != "code_published:ok" {
		t.Fatalf("audit=%v", got)
	}
}

func TestCreateItemValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()

	tests := []struct {
		name  string
		req   CreateItemRequest
		field string
	}{
		{"missing title", CreateItemRequest{Label: "Ada", Category: "Conf"}, "title"},
		{"blank label", CreateItemRequest{Title: "Talk", Label: "   ", Category: "Conf"}, "label"},
		{"missing category", CreateItemRequest{Title: "Talk", Label: "Ada"}, "category"},
		{"bad kind", CreateItemRequest{Kind: "poster", Title: "Talk", Label: "Ada", Category: "Conf"}, "kind"},
		{"bad mode", CreateItemRequest{Title: "Talk", Label: "Ada", Category: "Conf", RatingMode: "stars"}, "rating_mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/items", token, tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if got := decodeBody[ActionResponse](t, rec); got.Field != tt.field {
				t.Fatalf("field=%q want %q", got.Field, tt.field)
			}
		})
	}
	if env.items.Creates != 0 {
		t.Fatalf("invalid input reached the store %d times", env.items.Creates)
	}
}

func TestCreateItemRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/items", "", CreateItemRequest{Title: "T", Label: "L", Category: "C"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
	rec = env.do(http.MethodPost, "/api/items", "stale", CreateItemRequest{Title: "T", Label: "L", Category: "C"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale token status=%d", rec.Code)
	}
}

func TestCreateItemRetriesSlugCollision(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()

	env.items.TakenSlugs = 2
	env.createItem(token, CreateItemRequest{Kind: models.KindDeck, Title: "Seed Round", Label: "Acme", Category: "Fintech"})
	if env.items.Creates != 3 {
		t.Fatalf("creates=%d want 3", env.items.Creates)
	}

	env.items.TakenSlugs = slugAttempts
	rec := env.do(http.MethodPost, "/api/items", token, CreateItemRequest{Title: "Again", Label: "Acme", Category: "Fintech"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("exhausted retries: status=%d", rec.Code)
	}
}

func TestCreateItemSurvivesUploadFailure(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	env.store.UploadErr = errors.New("bucket unavailable")

	resp := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"})
	if resp.QRError == "" {
		t.Fatalf("expected qr_error")
	}
	if resp.Item.QRCodeURL != nil {
		t.Fatalf("qr_code_url must stay empty, got %q", *resp.Item.QRCodeURL)
	}

	// Retry converges once storage is back.
	env.store.UploadErr = nil
	rec := env.do(http.MethodPost, "/api/items/"+resp.Item.ID.String()+"/code", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status=%d body=%s", rec.Code, rec.Body.String())
	}
	code := decodeBody[CodeResponse](t, rec)
	stored, _ := env.items.GetByID(context.Background(), resp.Item.ID)
	if stored.QRCodeURL == nil || *stored.QRCodeURL != code.QRCodeURL {
		t.Fatalf("item not linked after retry: %v vs %q", stored.QRCodeURL, code.QRCodeURL)
	}
}

func TestRegenerateCodeReportsStage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	resp := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"})

	env.items.SetURLErr = errors.New("connection reset")
	rec := env.do(http.MethodPost, "/api/items/"+resp.Item.ID.String()+"/code", token, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := decodeBody[CodeResponse](t, rec); got.Stage != string(codeimage.StageLink) {
		t.Fatalf("stage=%q", got.Stage)
	}
}

func TestItemsAreOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.login()
	_, bob := env.login()

	a1 := env.createItem(alice, CreateItemRequest{Title: "First", Label: "Alice", Category: "Conf"})
	a2 := env.createItem(alice, CreateItemRequest{Title: "Second", Label: "Alice", Category: "Conf"})
	env.createItem(bob, CreateItemRequest{Title: "Bobs", Label: "Bob", Category: "Conf"})

	rec := env.do(http.MethodGet, "/api/items", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d", rec.Code)
	}
	list := decodeBody[ItemsResponse](t, rec)
	if list.Total != 2 || list.Items[0].ID != a2.Item.ID || list.Items[1].ID != a1.Item.ID {
		t.Fatalf("want alice's items newest first, got %+v", list.Items)
	}
	for _, it := range list.Items {
		if it.Metrics == nil || it.Metrics.Count != 0 || it.Metrics.LastComments == nil {
			t.Fatalf("empty metrics expected, got %+v", it.Metrics)
		}
	}

	for _, path := range []string{"", "/code.png", "/events"} {
		rec = env.do(http.MethodGet, "/api/items/"+a1.Item.ID.String()+path, bob, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("bob GET %q status=%d", path, rec.Code)
		}
	}
	rec = env.do(http.MethodGet, "/api/items/not-a-uuid", alice, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("bad id status=%d", rec.Code)
	}
}

func TestDownloadCode(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	item := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"}).Item
	base := "/api/items/" + item.ID.String()

	tests := []struct {
		path   string
		status int
		ctype  string
		size   int
	}{
		{"/code.png", http.StatusOK, "image/png", 256},
		{"/code.jpg", http.StatusOK, "image/jpeg", 128},
		{"/code.jpg?size=400", http.StatusOK, "image/jpeg", 400},
		{"/code.jpeg?size=128", http.StatusOK, "image/jpeg", 128},
		{"/code.gif", http.StatusBadRequest, "", 0},
		{"/code.png?size=10", http.StatusBadRequest, "", 0},
		{"/code.png?size=big", http.StatusBadRequest, "", 0},
	}
	for _, tt := range tests {
		rec := env.do(http.MethodGet, base+tt.path, token, nil)
		if rec.Code != tt.status {
			t.Fatalf("%s: status=%d body=%s", tt.path, rec.Code, rec.Body.String())
		}
		if tt.status != http.StatusOK {
			continue
		}
		if got := rec.Header().Get("Content-Type"); got != tt.ctype {
			t.Fatalf("%s: content-type=%q", tt.path, got)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, item.Slug+"-qr.") {
			t.Fatalf("%s: content-disposition=%q", tt.path, cd)
		}
		img, _, err := image.Decode(rec.Body)
		if err != nil {
			t.Fatalf("%s: decode: %v", tt.path, err)
		}
		if b := img.Bounds(); b.Dx() != tt.size || b.Dy() != tt.size {
			t.Fatalf("%s: bounds=%v", tt.path, b)
		}
	}
}

func TestDownloadCodeCaption(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	item := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"}).Item

	rec := env.do(http.MethodGet, "/api/items/"+item.ID.String()+"/code.png?caption=true", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	img, _, err := image.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() <= 256 {
		t.Fatalf("captioned bounds=%v", b)
	}
}

func TestShareRelaysItem(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	item := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"}).Item
	env.upstream.reply = "queued"

	rec := env.do(http.MethodPost, "/api/items/"+item.ID.String()+"/share", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[ShareResponse](t, rec); got.RelayResponse != "queued" {
		t.Fatalf("relay_response=%q", got.RelayResponse)
	}

	bodies := env.upstream.received()
	if len(bodies) != 1 {
		t.Fatalf("upstream hits=%d", len(bodies))
	}
	var payload SharePayload
	if err := json.Unmarshal(bodies[0], &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Slug != item.Slug || payload.FeedbackURL != item.FeedbackURL || payload.QRCodeURL != *item.QRCodeURL {
		t.Fatalf("payload=%+v", payload)
	}
	if got := env.audit.kinds(); len(got) != 2 || got[1] != "relayed:ok" {
		t.Fatalf("audit=%v", got)
	}

	rec = env.do(http.MethodGet, "/api/items/"+item.ID.String()+"/events", token, nil)
	events := decodeBody[EventsResponse](t, rec)
	if len(events.Events) != 2 || events.Events[0].Kind != models.ShareEventRelayed {
		t.Fatalf("events=%+v", events.Events)
	}
}

func TestShareWaitsForCode(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	env.store.UploadErr = errors.New("down")
	item := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"}).Item

	rec := env.do(http.MethodPost, "/api/items/"+item.ID.String()+"/share", token, nil)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", rec.Code)
	}
	if len(env.upstream.received()) != 0 {
		t.Fatalf("relay must not be called before the image exists")
	}
}

func TestShareReportsRelayFailure(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login()
	item := env.createItem(token, CreateItemRequest{Title: "My Talk", Label: "Ada", Category: "Conf"}).Item
	env.hook.Close()

	rec := env.do(http.MethodPost, "/api/items/"+item.ID.String()+"/share", token, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := env.audit.kinds(); got[len(got)-1] != "relayed:failed" {
		t.Fatalf("audit=%v", got)
	}
}
