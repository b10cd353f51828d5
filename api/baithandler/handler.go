package baithandler

import (
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/shard-integrity-enforcer/entropysink"
)

// DefaultPayloadSize is the pre-poisoning size of a bait payload in bytes.
const DefaultPayloadSize = 4096

// Handler serves poisoned decoy payloads on an unauthenticated route. The
// route is bait: nothing legitimate fetches it, so every request is a
// reconnaissance signal worth logging, and every served payload carries
// recognition markers that identify exfiltrated copies later.
type Handler struct {
	sink        *entropysink.Sink
	payloadSize int
	log         *slog.Logger
}

// NewHandler creates a bait payload handler. A non-positive payloadSize
// falls back to DefaultPayloadSize.
func NewHandler(sink *entropysink.Sink, payloadSize int, log *slog.Logger) *Handler {
	if payloadSize <= 0 {
		payloadSize = DefaultPayloadSize
	}
	return &Handler{
		sink:        sink,
		payloadSize: payloadSize,
		log:         log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/public/payload/{name}", h.HandlePayload)
}

// HandlePayload serves the poisoned payload for the requested name.
//
// URL format: GET /api/public/payload/{name}
//
// The payload is deterministic per name, so repeated scrapes of the same
// decoy return identical bytes and cross-referencing leaked copies stays
// possible.
//
// Response: Raw poisoned payload bytes.
func (h *Handler) HandlePayload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	payload := h.sink.Poison(h.template(name))

	h.log.Info("Bait payload served", "name", name, "remoteAddr", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(payload); err != nil {
		h.log.Error("Failed to write payload", "err", err)
	}
}

// template expands the decoy name into payloadSize bytes through a SHA-256
// chain. The chain output has no structure of its own; the traps and
// markers come from the sink.
func (h *Handler) template(name string) []byte {
	buf := make([]byte, 0, h.payloadSize+sha256.Size)
	block := sha256.Sum256([]byte(name))
	for len(buf) < h.payloadSize {
		buf = append(buf, block[:]...)
		block = sha256.Sum256(block[:])
	}
	return buf[:h.payloadSize]
}
