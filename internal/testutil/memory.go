// Package testutil holds in-memory stand-ins for the Postgres repositories,
// the Redis session store and object storage, used by handler and service tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/google/uuid"
)

type Owners struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.Owner
}

func NewOwners() *Owners {
	return &Owners{byID: make(map[uuid.UUID]models.Owner)}
}

func (o *Owners) Create(_ context.Context, owner *models.Owner) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, existing := range o.byID {
		if existing.Email == owner.Email {
			return repository.ErrEmailTaken
		}
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now().UTC()
	}
	o.byID[owner.ID] = *owner
	return nil
}

func (o *Owners) GetByID(_ context.Context, id uuid.UUID) (*models.Owner, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	owner, ok := o.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &owner, nil
}

func (o *Owners) GetByEmail(_ context.Context, email string) (*models.Owner, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, owner := range o.byID {
		if owner.Email == email {
			out := owner
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Items keeps insertion order so equal timestamps still list newest first.
type Items struct {
	mu    sync.Mutex
	items []models.Item

	// TakenSlugs makes Create report ErrSlugTaken this many times first.
	TakenSlugs int
	Creates    int
	SetURLErr  error
}

func NewItems() *Items {
	return &Items{}
}

func (s *Items) Create(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Creates++
	if s.TakenSlugs > 0 {
		s.TakenSlugs--
		return repository.ErrSlugTaken
	}
	for _, existing := range s.items {
		if existing.Slug == item.Slug {
			return repository.ErrSlugTaken
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, *item)
	return nil
}

func (s *Items) GetByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Items) GetBySlug(_ context.Context, slug string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Slug == slug {
			return &item, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Items) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Item{}
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].OwnerID == ownerID {
			out = append(out, s.items[i])
		}
	}
	return out, nil
}

func (s *Items) SetQRCodeURL(_ context.Context, id uuid.UUID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetURLErr != nil {
		return s.SetURLErr
	}
	for i := range s.items {
		if s.items[i].ID == id {
			u := url
			s.items[i].QRCodeURL = &u
			return nil
		}
	}
	return repository.ErrNotFound
}

// Feedback stores responses in insertion order.
type Feedback struct {
	mu   sync.Mutex
	rows []models.Feedback

	CreateErr error
}

func NewFeedback() *Feedback {
	return &Feedback{}
}

func (f *Feedback) Create(_ context.Context, fb *models.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return f.CreateErr
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	f.rows = append(f.rows, *fb)
	return nil
}

func (f *Feedback) ListByItem(_ context.Context, itemID uuid.UUID) ([]models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newestFirst(func(fb models.Feedback) bool { return fb.ItemID == itemID }), nil
}

func (f *Feedback) ListByItems(_ context.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}
	out := make(map[uuid.UUID][]models.Feedback)
	for _, fb := range f.newestFirst(func(fb models.Feedback) bool { return want[fb.ItemID] }) {
		out[fb.ItemID] = append(out[fb.ItemID], fb)
	}
	return out, nil
}

// Len reports how many responses were stored.
func (f *Feedback) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *Feedback) newestFirst(keep func(models.Feedback) bool) []models.Feedback {
	var out []models.Feedback
	for i := len(f.rows) - 1; i >= 0; i-- {
		if keep(f.rows[i]) {
			out = append(out, f.rows[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Sessions is a map-backed token store. It satisfies both the account
// service's session store and middleware.Authenticator.
type Sessions struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID

	Err error
}

func NewSessions() *Sessions {
	return &Sessions{tokens: make(map[string]uuid.UUID)}
}

func (s *Sessions) Create(_ context.Context, ownerID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = ownerID
	return token, nil
}

// Login registers a known token for ownerID.
func (s *Sessions) Login(token string, ownerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = ownerID
}

func (s *Sessions) Validate(_ context.Context, token string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return uuid.Nil, false, s.Err
	}
	id, ok := s.tokens[token]
	return id, ok, nil
}

func (s *Sessions) Authenticate(ctx context.Context, token string) (uuid.UUID, bool, error) {
	return s.Validate(ctx, token)
}

func (s *Sessions) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// Store is an in-memory object store with upsert semantics.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	Base      string
	UploadErr error
	Uploads   int
}

func NewStore() *Store {
	return &Store{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		Base:    "https://cdn.test/qr-codes",
	}
}

func (s *Store) Upload(_ context.Context, key, contentType string, body io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Uploads++
	if s.UploadErr != nil {
		return s.UploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	s.objects[key] = buf.Bytes()
	s.types[key] = contentType
	return nil
}

func (s *Store) PublicURL(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	return fmt.Sprintf("%s/%s", s.Base, key), nil
}

// Object returns a stored object and its content type.
func (s *Store) Object(key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, s.types[key], ok
}
