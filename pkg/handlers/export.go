package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/apperrors"
	"github.com/schemalens/schemalens/pkg/export"
	"github.com/schemalens/schemalens/pkg/models"
	"github.com/schemalens/schemalens/pkg/services"
)

// ExportHandler renders snapshots as DBML or DDL.
type ExportHandler struct {
	snapshots     services.SnapshotService
	keys          services.KeyGuessService
	relationships services.RelationshipService
	logger        *zap.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(
	snapshots services.SnapshotService,
	keys services.KeyGuessService,
	relationships services.RelationshipService,
	logger *zap.Logger,
) *ExportHandler {
	return &ExportHandler{
		snapshots:     snapshots,
		keys:          keys,
		relationships: relationships,
		logger:        logger.Named("export"),
	}
}

// RegisterRoutes registers the export routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasources/{dsid}/export/dbml", h.DBML)
	mux.HandleFunc("GET /api/datasources/{dsid}/export/ddl", h.DDL)
}

// DBML handles GET /api/datasources/{dsid}/export/dbml, returning the
// DBML document as plain text.
func (h *ExportHandler) DBML(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	tables, _, rels, err := h.load(r, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.writeText(w, export.WriteDBML(tables, rels))
}

// DDL handles GET /api/datasources/{dsid}/export/ddl?flavor=postgres,
// returning a DDL script in the requested dialect.
func (h *ExportHandler) DDL(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	flavor := r.URL.Query().Get("flavor")
	if flavor == "" {
		flavor = export.FlavorPostgres
	}

	tables, keys, rels, err := h.load(r, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	script, err := export.WriteDDL(flavor, tables, keys, rels)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.writeText(w, script)
}

// load gathers everything an export needs from the stored state.
func (h *ExportHandler) load(r *http.Request, id uuid.UUID) ([]*models.SnapshotTable, []*models.CandidateKey, []*models.Relationship, error) {
	ctx := r.Context()

	tables, err := h.snapshots.List(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(tables) == 0 {
		return nil, nil, nil, fmt.Errorf("datasource %s has no snapshot: %w", id, apperrors.ErrEmptySnapshot)
	}

	keys, err := h.keys.List(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	rels, err := h.relationships.List(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	return tables, keys, rels, nil
}

func (h *ExportHandler) writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Error("Failed to write export body", zap.Error(err))
	}
}

func (h *ExportHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("Export failed", zap.Error(err))
	if werr := WriteError(w, err); werr != nil {
		h.logger.Error("Failed to write error response", zap.Error(werr))
	}
}
