package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/codeimage"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/middleware"
	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/relay"
	"github.com/AnshRaj112/talkback-backend/internal/services"
	"github.com/AnshRaj112/talkback-backend/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []models.ShareEvent
}

func (a *recordingAudit) RecordAsync(ev models.ShareEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAudit) Recent(_ context.Context, itemID string, limit int64) ([]models.ShareEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []models.ShareEvent{}
	for i := len(a.events) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if a.events[i].ItemID == itemID {
			out = append(out, a.events[i])
		}
	}
	return out, nil
}

func (a *recordingAudit) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, ev := range a.events {
		out = append(out, ev.Kind+":"+ev.Status)
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []services.FeedbackEvent
	err    error
}

func (e *recordingEvents) Publish(_ context.Context, ev services.FeedbackEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return e.err
}

// upstream is the webhook the relay forwards to.
type upstream struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
	reply  string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.bodies = append(u.bodies, body)
	status, reply := u.status, u.reply
	u.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, reply)
}

func (u *upstream) received() [][]byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([][]byte(nil), u.bodies...)
}

type testEnv struct {
	t        *testing.T
	router   http.Handler
	owners   *testutil.Owners
	items    *testutil.Items
	feedback *testutil.Feedback
	sessions *testutil.Sessions
	store    *testutil.Store
	audit    *recordingAudit
	events   *recordingEvents
	upstream *upstream
	hook     *httptest.Server
	itemH    *ItemHandler
	site     Site
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()

	env := &testEnv{
		t:        t,
		owners:   testutil.NewOwners(),
		items:    testutil.NewItems(),
		feedback: testutil.NewFeedback(),
		sessions: testutil.NewSessions(),
		store:    testutil.NewStore(),
		audit:    &recordingAudit{},
		events:   &recordingEvents{},
		upstream: &upstream{},
		site:     Site{PublicSiteURL: "https://talkback.test", ExportSize: 256, ShareSize: 128},
	}

	env.hook = httptest.NewServer(env.upstream)
	t.Cleanup(env.hook.Close)

	accounts := services.NewAccountService(env.owners, env.sessions)
	guard := codeimage.NewGuard(codeimage.NewPipeline(env.store, env.items, env.site.ExportSize, log))
	forwarder := relay.NewForwarder(env.hook.URL, nil, log)

	authH := NewAuthHandler(accounts, log)
	env.itemH = NewItemHandler(env.items, env.feedback, guard, forwarder, env.audit, env.site, log)
	env.itemH.pollInterval = time.Millisecond
	publicH := NewPublicHandler(env.items, env.feedback, env.events, log)
	codegenH := NewCodegenHandler(accounts, env.items, guard, log)
	relayH := NewRelayHandler(forwarder, log)

	r := chi.NewRouter()
	r.Post("/relay", relayH.Forward)
	r.Post("/api/codes/generate", codegenH.Generate)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authH.SignUp)
		r.Post("/signin", authH.SignIn)
		r.With(middleware.RequireSession(accounts)).Post("/signout", authH.SignOut)
		r.With(middleware.RequireSession(accounts)).Get("/me", authH.Me)
	})
	r.Route("/api/items", func(r chi.Router) {
		r.Use(middleware.RequireSession(accounts))
		r.Post("/", env.itemH.Create)
		r.Get("/", env.itemH.List)
		r.Get("/{id}", env.itemH.Get)
		r.Post("/{id}/code", env.itemH.RegenerateCode)
		r.Get("/{id}/code.{format}", env.itemH.DownloadCode)
		r.Post("/{id}/share", env.itemH.Share)
		r.Get("/{id}/events", env.itemH.Events)
	})
	r.Get("/f/{slug}", publicH.GetForm)
	r.Post("/f/{slug}", publicH.Submit)
	r.Get("/feedback/{slug}", publicH.Results)
	env.router = r
	return env
}

// login registers a fresh owner with a known token.
func (e *testEnv) login() (uuid.UUID, string) {
	ownerID := uuid.New()
	token := "tok-" + ownerID.String()
	e.sessions.Login(token, ownerID)
	return ownerID, token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createItem posts a speaker item and returns the view from the response.
func (e *testEnv) createItem(token string, req CreateItemRequest) ItemResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/items", token, req)
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("create item: status=%d body=%s", rec.Code, rec.Body.String())
	}
	return decodeBody[ItemResponse](e.t, rec)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %T: %v body=%s", out, err, rec.Body.String())
	}
	return out
}

func intPtr(v int) *int { return &v }
