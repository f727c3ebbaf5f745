package codeimage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var ErrAlreadyPublished = errors.New("code image already published for this item")

const publishedTTL = 30 * time.Minute

type publisher interface {
	Publish(ctx context.Context, job Job) (*Result, error)
}

// Guard wraps a pipeline so that the creation-time publish runs at most once
// per item and concurrent runs for the same item share one result.
type Guard struct {
	pipeline publisher
	group    singleflight.Group

	mu        sync.Mutex
	published map[uuid.UUID]time.Time
	now       func() time.Time
}

func NewGuard(p publisher) *Guard {
	return &Guard{
		pipeline:  p,
		published: make(map[uuid.UUID]time.Time),
		now:       time.Now,
	}
}

// PublishOnce is the creation hook. A second call for the same item returns
// ErrAlreadyPublished without touching storage. A failed run does not mark the
// item, so Retry stays available.
func (g *Guard) PublishOnce(ctx context.Context, job Job) (*Result, error) {
	if g.isPublished(job.ItemID) {
		return nil, ErrAlreadyPublished
	}

	v, err, _ := g.group.Do(job.ItemID.String(), func() (interface{}, error) {
		if g.isPublished(job.ItemID) {
			return nil, ErrAlreadyPublished
		}
		res, err := g.pipeline.Publish(ctx, job)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.published[job.ItemID] = g.now()
		g.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (g *Guard) isPublished(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune()
	_, done := g.published[id]
	return done
}

// Retry runs the pipeline again. Storage writes are upserts at a fixed key,
// so repeated runs converge; concurrent calls for one item are collapsed.
func (g *Guard) Retry(ctx context.Context, job Job) (*Result, error) {
	v, err, _ := g.group.Do(job.ItemID.String(), func() (interface{}, error) {
		return g.pipeline.Publish(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// caller holds g.mu
func (g *Guard) prune() {
	cutoff := g.now().Add(-publishedTTL)
	for id, at := range g.published {
		if at.Before(cutoff) {
			delete(g.published, id)
		}
	}
}
