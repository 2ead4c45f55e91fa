package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
	"github.com/schemalens/schemalens/pkg/logging"
	"github.com/schemalens/schemalens/pkg/models"
	"github.com/schemalens/schemalens/pkg/repositories"
)

// SnapshotService captures schema snapshots from datasources.
type SnapshotService interface {
	// Refresh introspects the datasource and replaces its stored snapshot.
	// Returns the captured tables with columns and stats populated.
	Refresh(ctx context.Context, datasourceID uuid.UUID) ([]*models.SnapshotTable, error)
	// List returns the stored snapshot of a datasource.
	List(ctx context.Context, datasourceID uuid.UUID) ([]*models.SnapshotTable, error)
}

type snapshotService struct {
	datasourceRepo repositories.DatasourceRepository
	snapshotRepo   repositories.SnapshotRepository
	logger         *zap.Logger
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(
	datasourceRepo repositories.DatasourceRepository,
	snapshotRepo repositories.SnapshotRepository,
	logger *zap.Logger,
) SnapshotService {
	return &snapshotService{
		datasourceRepo: datasourceRepo,
		snapshotRepo:   snapshotRepo,
		logger:         logger.Named("snapshot"),
	}
}

func (s *snapshotService) Refresh(ctx context.Context, datasourceID uuid.UUID) ([]*models.SnapshotTable, error) {
	ds, err := s.datasourceRepo.GetByID(ctx, datasourceID)
	if err != nil {
		return nil, err
	}

	intro, err := datasource.New(ctx, ds.Type, ds.DSN, s.logger)
	if err != nil {
		// Driver errors can echo the DSN; sanitize before surfacing.
		return nil, fmt.Errorf("connect to datasource %q: %s", ds.Name, logging.SanitizeError(err))
	}
	defer intro.Close()

	tables, err := captureTables(ctx, intro)
	if err != nil {
		return nil, fmt.Errorf("capture snapshot of %q: %w", ds.Name, err)
	}
	for _, t := range tables {
		t.DatasourceID = datasourceID
	}

	if err := s.snapshotRepo.ReplaceSnapshot(ctx, datasourceID, tables); err != nil {
		return nil, err
	}

	s.logger.Info("Snapshot captured",
		zap.String("datasource", ds.Name),
		zap.Int("table_count", len(tables)))

	return tables, nil
}

func (s *snapshotService) List(ctx context.Context, datasourceID uuid.UUID) ([]*models.SnapshotTable, error) {
	return s.snapshotRepo.ListTables(ctx, datasourceID)
}
