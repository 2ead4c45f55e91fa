package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
	"github.com/schemalens/schemalens/pkg/models"
	"github.com/schemalens/schemalens/pkg/repositories"
)

// ApiResponse wraps data in the envelope expected by API clients.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// CreateDatasourceRequest for POST body.
type CreateDatasourceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	DSN  string `json:"dsn"`
}

// UpdateDatasourceRequest for PUT body. An empty DSN keeps the stored one.
type UpdateDatasourceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	DSN  string `json:"dsn"`
}

// DatasourceHandler handles datasource CRUD endpoints.
type DatasourceHandler struct {
	repo   repositories.DatasourceRepository
	logger *zap.Logger
}

// NewDatasourceHandler creates a new DatasourceHandler.
func NewDatasourceHandler(repo repositories.DatasourceRepository, logger *zap.Logger) *DatasourceHandler {
	return &DatasourceHandler{repo: repo, logger: logger.Named("datasources")}
}

// RegisterRoutes registers the datasource routes on the given mux.
func (h *DatasourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/adapters", h.ListAdapters)
	mux.HandleFunc("GET /api/datasources", h.List)
	mux.HandleFunc("POST /api/datasources", h.Create)
	mux.HandleFunc("GET /api/datasources/{dsid}", h.Get)
	mux.HandleFunc("PUT /api/datasources/{dsid}", h.Update)
	mux.HandleFunc("DELETE /api/datasources/{dsid}", h.Delete)
}

// ListAdapters handles GET /api/adapters, returning the registered
// datasource types.
func (h *DatasourceHandler) ListAdapters(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, datasource.RegisteredAdapters())
}

// List handles GET /api/datasources. DSNs never leave the server.
func (h *DatasourceHandler) List(w http.ResponseWriter, r *http.Request) {
	datasources, err := h.repo.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, datasources)
}

// Create handles POST /api/datasources.
func (h *DatasourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body")
		return
	}
	if msg := validateDatasourceRequest(req.Name, req.Type, req.DSN, true); msg != "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	ds := &models.Datasource{
		Name: strings.TrimSpace(req.Name),
		Type: req.Type,
		DSN:  req.DSN,
	}
	if err := h.repo.Create(r.Context(), ds); err != nil {
		h.fail(w, err)
		return
	}

	h.logger.Info("Datasource created",
		zap.String("name", ds.Name),
		zap.String("type", ds.Type))
	h.respond(w, http.StatusCreated, ds)
}

// Get handles GET /api/datasources/{dsid}.
func (h *DatasourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	ds, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, ds)
}

// Update handles PUT /api/datasources/{dsid}.
func (h *DatasourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body")
		return
	}
	if msg := validateDatasourceRequest(req.Name, req.Type, req.DSN, false); msg != "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	ds, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	ds.Name = strings.TrimSpace(req.Name)
	ds.Type = req.Type
	if req.DSN != "" {
		ds.DSN = req.DSN
	}
	if err := h.repo.Update(r.Context(), ds); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, ds)
}

// Delete handles DELETE /api/datasources/{dsid}.
func (h *DatasourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func validateDatasourceRequest(name, dsType, dsn string, dsnRequired bool) string {
	if strings.TrimSpace(name) == "" {
		return "name is required"
	}
	if !datasource.IsRegistered(dsType) {
		return "unknown datasource type: " + dsType
	}
	if dsnRequired && dsn == "" {
		return "dsn is required"
	}
	return ""
}

func (h *DatasourceHandler) respond(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *DatasourceHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("Datasource request failed", zap.Error(err))
	if werr := WriteError(w, err); werr != nil {
		h.logger.Error("Failed to write error response", zap.Error(werr))
	}
}
