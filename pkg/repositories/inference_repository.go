package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/schemalens/schemalens/pkg/database"
	"github.com/schemalens/schemalens/pkg/models"
)

// InferenceRepository provides data access for candidate keys and inferred
// relationships.
type InferenceRepository interface {
	// ReplaceCandidateKeys swaps the stored candidate keys for a datasource.
	ReplaceCandidateKeys(ctx context.Context, datasourceID uuid.UUID, keys []*models.CandidateKey) error
	// ListCandidateKeys returns stored candidate keys, joined with table names.
	ListCandidateKeys(ctx context.Context, datasourceID uuid.UUID) ([]*models.CandidateKey, error)
	// ReplaceRelationships swaps the stored relationships for a datasource.
	ReplaceRelationships(ctx context.Context, datasourceID uuid.UUID, rels []*models.Relationship) error
	// ListRelationships returns stored relationships, joined with table names.
	ListRelationships(ctx context.Context, datasourceID uuid.UUID) ([]*models.Relationship, error)
}

type inferenceRepository struct {
	db *database.DB
}

// NewInferenceRepository creates a new InferenceRepository.
func NewInferenceRepository(db *database.DB) InferenceRepository {
	return &inferenceRepository{db: db}
}

var _ InferenceRepository = (*inferenceRepository)(nil)

func (r *inferenceRepository) ReplaceCandidateKeys(ctx context.Context, datasourceID uuid.UUID, keys []*models.CandidateKey) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin candidate key transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const clearQuery = `
		DELETE FROM candidate_keys
		WHERE table_id IN (SELECT id FROM snapshot_tables WHERE datasource_id = $1)`
	if _, err := tx.Exec(ctx, clearQuery, datasourceID); err != nil {
		return fmt.Errorf("failed to clear candidate keys: %w", err)
	}

	const insertQuery = `
		INSERT INTO candidate_keys (table_id, columns, method, level)
		VALUES ($1, $2, $3, $4)
		RETURNING id, discovered_at`

	for _, k := range keys {
		err := tx.QueryRow(ctx, insertQuery, k.TableID, k.Columns, k.Method, k.Level).
			Scan(&k.ID, &k.DiscoveredAt)
		if err != nil {
			return fmt.Errorf("failed to insert candidate key for %s.%s: %w", k.SchemaName, k.TableName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit candidate keys: %w", err)
	}
	return nil
}

func (r *inferenceRepository) ListCandidateKeys(ctx context.Context, datasourceID uuid.UUID) ([]*models.CandidateKey, error) {
	const query = `
		SELECT k.id, k.table_id, t.schema_name, t.table_name, k.columns,
		       k.method, k.level, k.discovered_at
		FROM candidate_keys k
		JOIN snapshot_tables t ON t.id = k.table_id
		WHERE t.datasource_id = $1
		ORDER BY t.schema_name, t.table_name, k.level, k.columns`

	rows, err := r.db.Query(ctx, query, datasourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*models.CandidateKey, 0)
	for rows.Next() {
		var k models.CandidateKey
		if err := rows.Scan(&k.ID, &k.TableID, &k.SchemaName, &k.TableName, &k.Columns,
			&k.Method, &k.Level, &k.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate key: %w", err)
		}
		keys = append(keys, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate keys: %w", err)
	}
	return keys, nil
}

func (r *inferenceRepository) ReplaceRelationships(ctx context.Context, datasourceID uuid.UUID, rels []*models.Relationship) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin relationship transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM relationships WHERE datasource_id = $1`, datasourceID); err != nil {
		return fmt.Errorf("failed to clear relationships: %w", err)
	}

	const insertQuery = `
		INSERT INTO relationships (
			datasource_id, source_table_id, target_table_id, source_columns,
			target_columns, cardinality, method, confidence, label
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, inferred_at`

	for _, rel := range rels {
		rel.DatasourceID = datasourceID
		err := tx.QueryRow(ctx, insertQuery,
			datasourceID, rel.SourceTableID, rel.TargetTableID, rel.SourceColumns,
			rel.TargetColumns, rel.Cardinality, rel.Method, rel.Confidence, rel.Label,
		).Scan(&rel.ID, &rel.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert relationship %s -> %s: %w", rel.SourceTable, rel.TargetTable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit relationships: %w", err)
	}
	return nil
}

func (r *inferenceRepository) ListRelationships(ctx context.Context, datasourceID uuid.UUID) ([]*models.Relationship, error) {
	const query = `
		SELECT rel.id, rel.datasource_id, rel.source_table_id, rel.target_table_id,
		       src.schema_name, src.table_name, tgt.schema_name, tgt.table_name,
		       rel.source_columns, rel.target_columns, rel.cardinality,
		       rel.method, rel.confidence, rel.label, rel.inferred_at
		FROM relationships rel
		JOIN snapshot_tables src ON src.id = rel.source_table_id
		JOIN snapshot_tables tgt ON tgt.id = rel.target_table_id
		WHERE rel.datasource_id = $1
		ORDER BY src.schema_name, src.table_name, tgt.schema_name, tgt.table_name`

	rows, err := r.db.Query(ctx, query, datasourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]*models.Relationship, 0)
	for rows.Next() {
		var rel models.Relationship
		if err := rows.Scan(&rel.ID, &rel.DatasourceID, &rel.SourceTableID, &rel.TargetTableID,
			&rel.SourceSchema, &rel.SourceTable, &rel.TargetSchema, &rel.TargetTable,
			&rel.SourceColumns, &rel.TargetColumns, &rel.Cardinality,
			&rel.Method, &rel.Confidence, &rel.Label, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return rels, nil
}
