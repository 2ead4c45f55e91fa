package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/services"
)

// InferenceHandler handles key guessing and relationship inference
// endpoints.
type InferenceHandler struct {
	keys          services.KeyGuessService
	relationships services.RelationshipService
	logger        *zap.Logger
}

// NewInferenceHandler creates a new InferenceHandler.
func NewInferenceHandler(keys services.KeyGuessService, relationships services.RelationshipService, logger *zap.Logger) *InferenceHandler {
	return &InferenceHandler{
		keys:          keys,
		relationships: relationships,
		logger:        logger.Named("inference"),
	}
}

// RegisterRoutes registers the inference routes on the given mux.
func (h *InferenceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasources/{dsid}/keys/guess", h.GuessKeys)
	mux.HandleFunc("GET /api/datasources/{dsid}/keys", h.ListKeys)
	mux.HandleFunc("POST /api/datasources/{dsid}/relationships/infer", h.InferRelationships)
	mux.HandleFunc("GET /api/datasources/{dsid}/relationships", h.ListRelationships)
}

// GuessKeys handles POST /api/datasources/{dsid}/keys/guess.
func (h *InferenceHandler) GuessKeys(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	keys, err := h.keys.Guess(r.Context(), id)
	if err != nil {
		h.logger.Error("Key guessing failed", zap.Error(err))
		_ = WriteError(w, err)
		return
	}
	h.respond(w, keys)
}

// ListKeys handles GET /api/datasources/{dsid}/keys.
func (h *InferenceHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	keys, err := h.keys.List(r.Context(), id)
	if err != nil {
		h.logger.Error("Key listing failed", zap.Error(err))
		_ = WriteError(w, err)
		return
	}
	h.respond(w, keys)
}

// InferRelationships handles POST /api/datasources/{dsid}/relationships/infer.
func (h *InferenceHandler) InferRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	rels, err := h.relationships.Infer(r.Context(), id)
	if err != nil {
		h.logger.Error("Relationship inference failed", zap.Error(err))
		_ = WriteError(w, err)
		return
	}
	h.respond(w, rels)
}

// ListRelationships handles GET /api/datasources/{dsid}/relationships.
func (h *InferenceHandler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	rels, err := h.relationships.List(r.Context(), id)
	if err != nil {
		h.logger.Error("Relationship listing failed", zap.Error(err))
		_ = WriteError(w, err)
		return
	}
	h.respond(w, rels)
}

func (h *InferenceHandler) respond(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
