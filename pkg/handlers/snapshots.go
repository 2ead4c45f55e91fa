package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/services"
)

// SnapshotHandler handles snapshot capture and retrieval endpoints.
type SnapshotHandler struct {
	snapshots services.SnapshotService
	logger    *zap.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapshots services.SnapshotService, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, logger: logger.Named("snapshots")}
}

// RegisterRoutes registers the snapshot routes on the given mux.
func (h *SnapshotHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasources/{dsid}/snapshot/refresh", h.Refresh)
	mux.HandleFunc("GET /api/datasources/{dsid}/snapshot", h.Get)
}

// Refresh handles POST /api/datasources/{dsid}/snapshot/refresh.
// Introspects the datasource and replaces the stored snapshot.
func (h *SnapshotHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	tables, err := h.snapshots.Refresh(r.Context(), id)
	if err != nil {
		h.logger.Error("Snapshot refresh failed", zap.Error(err))
		_ = WriteError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tables}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Get handles GET /api/datasources/{dsid}/snapshot.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	tables, err := h.snapshots.List(r.Context(), id)
	if err != nil {
		h.logger.Error("Snapshot fetch failed", zap.Error(err))
		_ = WriteError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tables}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
