package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/relay"
)

// RelayHandler is the cross-origin webhook relay. Any origin may call it.
type RelayHandler struct {
	relay Relayer
	log   *logger.Logger
}

func NewRelayHandler(r Relayer, log *logger.Logger) *RelayHandler {
	return &RelayHandler{relay: r, log: log}
}

// Forward posts the raw body upstream and answers with the upstream text.
func (h *RelayHandler) Forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, relay.MaxPayloadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if len(body) > relay.MaxPayloadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "payload too large"})
		return
	}

	reply, err := h.relay.Forward(r.Context(), body)
	if err != nil {
		if !errors.Is(err, relay.ErrMalformedJSON) {
			h.log.Warn("relay forward failed", "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, reply)
}
