package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/schemalens/schemalens/pkg/apperrors"
	"github.com/schemalens/schemalens/pkg/database"
	"github.com/schemalens/schemalens/pkg/models"
)

// DatasourceRepository provides data access for registered datasources.
type DatasourceRepository interface {
	Create(ctx context.Context, ds *models.Datasource) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error)
	List(ctx context.Context) ([]*models.Datasource, error)
	Update(ctx context.Context, ds *models.Datasource) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type datasourceRepository struct {
	db *database.DB
}

// NewDatasourceRepository creates a new DatasourceRepository.
func NewDatasourceRepository(db *database.DB) DatasourceRepository {
	return &datasourceRepository{db: db}
}

var _ DatasourceRepository = (*datasourceRepository)(nil)

const uniqueViolationCode = "23505"

func (r *datasourceRepository) Create(ctx context.Context, ds *models.Datasource) error {
	const query = `
		INSERT INTO datasources (name, type, dsn)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, ds.Name, ds.Type, ds.DSN).
		Scan(&ds.ID, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("datasource %q: %w", ds.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create datasource: %w", err)
	}
	return nil
}

func (r *datasourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error) {
	const query = `
		SELECT id, name, type, dsn, created_at, updated_at
		FROM datasources
		WHERE id = $1`

	var ds models.Datasource
	err := r.db.QueryRow(ctx, query, id).
		Scan(&ds.ID, &ds.Name, &ds.Type, &ds.DSN, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("datasource %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get datasource: %w", err)
	}
	return &ds, nil
}

func (r *datasourceRepository) List(ctx context.Context) ([]*models.Datasource, error) {
	const query = `
		SELECT id, name, type, dsn, created_at, updated_at
		FROM datasources
		ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	defer rows.Close()

	datasources := make([]*models.Datasource, 0)
	for rows.Next() {
		var ds models.Datasource
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Type, &ds.DSN, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan datasource: %w", err)
		}
		datasources = append(datasources, &ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasources: %w", err)
	}
	return datasources, nil
}

func (r *datasourceRepository) Update(ctx context.Context, ds *models.Datasource) error {
	const query = `
		UPDATE datasources
		SET name = $2, type = $3, dsn = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, ds.ID, ds.Name, ds.Type, ds.DSN).Scan(&ds.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("datasource %s: %w", ds.ID, apperrors.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("datasource %q: %w", ds.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update datasource: %w", err)
	}
	return nil
}

func (r *datasourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM datasources WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete datasource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("datasource %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
