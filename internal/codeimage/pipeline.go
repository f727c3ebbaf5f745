package codeimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/google/uuid"
)

type Stage string

const (
	StageRender    Stage = "render"
	StageRasterize Stage = "rasterize"
	StageUpload    Stage = "upload"
	StageLink      Stage = "link"
)

// StageError reports which step of a publish run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("code image %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage of a StageError anywhere in err's chain.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// ObjectStore is the durable storage a published image goes to. Upload must
// overwrite an existing object at key.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) (string, error)
}

// Linker writes the public image URL back onto the owning item.
type Linker interface {
	SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error
}

// Job identifies one item's code image.
type Job struct {
	OwnerID uuid.UUID
	ItemID  uuid.UUID
	URL     string
}

type Result struct {
	Key       string `json:"key"`
	PublicURL string `json:"qr_code_url"`
	Bytes     int    `json:"bytes"`
}

// ObjectKey is the storage path for an item's code image.
func ObjectKey(ownerID, itemID uuid.UUID) string {
	return ownerID.String() + "/" + itemID.String() + ".png"
}

type Pipeline struct {
	store  ObjectStore
	linker Linker
	size   int
	log    *logger.Logger
}

func NewPipeline(store ObjectStore, linker Linker, exportSize int, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{store: store, linker: linker, size: exportSize, log: log}
}

// Publish renders, rasterizes and uploads the code for job, then links the
// public URL onto the item. The link stage only runs after a successful
// upload; any earlier failure leaves the item untouched.
func (p *Pipeline) Publish(ctx context.Context, job Job) (*Result, error) {
	png, err := Export(job.URL, RasterOptions{Size: p.size}, FormatPNG)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(job.OwnerID, job.ItemID)
	if err := p.store.Upload(ctx, key, FormatPNG.ContentType(), bytes.NewReader(png)); err != nil {
		p.log.Warn("code image upload failed", "item_id", job.ItemID, "key", key, "error", err)
		return nil, &StageError{Stage: StageUpload, Err: err}
	}

	publicURL, err := p.store.PublicURL(key)
	if err != nil {
		return nil, &StageError{Stage: StageUpload, Err: fmt.Errorf("public url: %w", err)}
	}

	if err := p.linker.SetQRCodeURL(ctx, job.ItemID, publicURL); err != nil {
		p.log.Error("code image uploaded but link failed", "item_id", job.ItemID, "key", key, "error", err)
		return nil, &StageError{Stage: StageLink, Err: err}
	}

	p.log.Info("code image published", "item_id", job.ItemID, "key", key, "bytes", len(png))
	return &Result{Key: key, PublicURL: publicURL, Bytes: len(png)}, nil
}

// Export runs the render and rasterize stages and encodes the bitmap without
// persisting it.
func Export(content string, opts RasterOptions, format Format) ([]byte, error) {
	code, err := Render(content)
	if err != nil {
		return nil, &StageError{Stage: StageRender, Err: err}
	}
	img, err := Rasterize(code, opts)
	if err != nil {
		return nil, &StageError{Stage: StageRasterize, Err: err}
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return nil, &StageError{Stage: StageRasterize, Err: err}
	}
	return buf.Bytes(), nil
}
