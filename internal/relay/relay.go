// Package relay forwards JSON payloads to one fixed external webhook.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
)

const (
	// MaxPayloadBytes caps incoming relay bodies.
	MaxPayloadBytes  = 1 << 20
	maxResponseBytes = 1 << 20
	defaultTimeout   = 15 * time.Second
)

var (
	ErrMalformedJSON = errors.New("payload is not valid JSON")
	ErrNoTarget      = errors.New("relay target is not configured")
)

// Forwarder posts bodies verbatim to its target and returns the reply text.
type Forwarder struct {
	target string
	client *http.Client
	log    *logger.Logger
}

func NewForwarder(target string, client *http.Client, log *logger.Logger) *Forwarder {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Forwarder{target: strings.TrimSpace(target), client: client, log: log}
}

// Forward sends body unchanged. The body only has to be syntactically valid
// JSON; objects and arrays are both accepted. An empty upstream reply becomes "ok".
func (f *Forwarder) Forward(ctx context.Context, body []byte) (string, error) {
	if !json.Valid(body) {
		return "", ErrMalformedJSON
	}
	if f.target == "" {
		return "", ErrNoTarget
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.target, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read relay response: %w", err)
	}

	f.log.Debug("relay forwarded", "status", resp.StatusCode, "request_bytes", len(body), "response_bytes", len(reply))
	if len(reply) == 0 {
		return "ok", nil
	}
	return string(reply), nil
}

// ForwardValue marshals v and forwards it.
func (f *Forwarder) ForwardValue(ctx context.Context, v interface{}) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode relay payload: %w", err)
	}
	return f.Forward(ctx, body)
}
