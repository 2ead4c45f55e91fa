package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/models"
)

// Fake services backed by fixed fixtures.

type fakeSnapshotService struct {
	tables []*models.SnapshotTable
}

func (f *fakeSnapshotService) Refresh(_ context.Context, _ uuid.UUID) ([]*models.SnapshotTable, error) {
	return f.tables, nil
}

func (f *fakeSnapshotService) List(_ context.Context, _ uuid.UUID) ([]*models.SnapshotTable, error) {
	return f.tables, nil
}

type fakeKeyGuessService struct {
	keys []*models.CandidateKey
}

func (f *fakeKeyGuessService) Guess(_ context.Context, _ uuid.UUID) ([]*models.CandidateKey, error) {
	return f.keys, nil
}

func (f *fakeKeyGuessService) List(_ context.Context, _ uuid.UUID) ([]*models.CandidateKey, error) {
	return f.keys, nil
}

type fakeRelationshipService struct {
	rels []*models.Relationship
}

func (f *fakeRelationshipService) Infer(_ context.Context, _ uuid.UUID) ([]*models.Relationship, error) {
	return f.rels, nil
}

func (f *fakeRelationshipService) List(_ context.Context, _ uuid.UUID) ([]*models.Relationship, error) {
	return f.rels, nil
}

func exportFixtures() (*fakeSnapshotService, *fakeKeyGuessService, *fakeRelationshipService) {
	snapshots := &fakeSnapshotService{tables: []*models.SnapshotTable{
		{
			SchemaName: "public",
			TableName:  "customers",
			Columns: []models.SnapshotColumn{
				{ColumnName: "customer_id", DataType: "integer", IsPrimaryKey: true},
			},
		},
		{
			SchemaName: "public",
			TableName:  "orders",
			Columns: []models.SnapshotColumn{
				{ColumnName: "order_id", DataType: "integer", IsPrimaryKey: true},
				{ColumnName: "customer_id", DataType: "integer"},
			},
		},
	}}
	keys := &fakeKeyGuessService{keys: []*models.CandidateKey{
		{SchemaName: "public", TableName: "customers", Columns: []string{"customer_id"}, Method: models.KeyMethodDeclaredPK, Level: 1},
	}}
	rels := &fakeRelationshipService{rels: []*models.Relationship{{
		SourceSchema: "public", SourceTable: "customers",
		TargetSchema: "public", TargetTable: "orders",
		SourceColumns: []string{"customer_id"},
		TargetColumns: []string{"customer_id"},
		Cardinality:   models.CardinalityOneToMany,
	}}}
	return snapshots, keys, rels
}

func newExportMux() *http.ServeMux {
	snapshots, keys, rels := exportFixtures()
	handler := NewExportHandler(snapshots, keys, rels, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func TestExportHandler_DBML(t *testing.T) {
	mux := newExportMux()

	req := httptest.NewRequest(http.MethodGet, "/api/datasources/"+uuid.NewString()+"/export/dbml", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Table public.customers {")
	assert.Contains(t, rec.Body.String(), "Ref: public.customers.customer_id < public.orders.customer_id")
}

func TestExportHandler_DDL_DefaultFlavor(t *testing.T) {
	mux := newExportMux()

	req := httptest.NewRequest(http.MethodGet, "/api/datasources/"+uuid.NewString()+"/export/ddl", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `CREATE TABLE "public"."customers" (`)
}

func TestExportHandler_DDL_UnknownFlavor(t *testing.T) {
	mux := newExportMux()

	req := httptest.NewRequest(http.MethodGet, "/api/datasources/"+uuid.NewString()+"/export/ddl?flavor=oracle", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportHandler_EmptySnapshot(t *testing.T) {
	handler := NewExportHandler(&fakeSnapshotService{}, &fakeKeyGuessService{}, &fakeRelationshipService{}, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/datasources/"+uuid.NewString()+"/export/dbml", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportHandler_InvalidDatasourceID(t *testing.T) {
	mux := newExportMux()

	req := httptest.NewRequest(http.MethodGet, "/api/datasources/not-a-uuid/export/dbml", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
