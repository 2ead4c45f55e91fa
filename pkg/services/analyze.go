package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
	"github.com/schemalens/schemalens/pkg/models"
)

// AnalysisResult is a full one-shot analysis of a live database.
type AnalysisResult struct {
	Tables        []*models.SnapshotTable
	Keys          []*models.CandidateKey
	Relationships []*models.Relationship
}

// Analyze runs the whole pipeline against an open introspector without
// touching the engine store: capture the schema, guess candidate keys,
// and infer relationships. Used by the CLI for ad-hoc runs.
func Analyze(ctx context.Context, intro datasource.Introspector, cfg KeyGuessConfig, logger *zap.Logger) (*AnalysisResult, error) {
	tables, err := captureTables(ctx, intro)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		// The engine store normally assigns IDs; ad-hoc runs need them
		// only to correlate keys with tables.
		t.ID = uuid.New()
		for i := range t.Columns {
			t.Columns[i].TableID = t.ID
		}
	}

	constraints, err := intro.ListKeyConstraints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list key constraints: %w", err)
	}
	constraintsByTable := groupConstraints(constraints)

	guesser := &keyGuessService{cfg: clampKeyGuessConfig(cfg), logger: logger.Named("keyguess")}
	var keys []*models.CandidateKey
	for _, t := range tables {
		tableKeys, err := guesser.guessTable(ctx, intro, t, constraintsByTable[t.QualifiedName()])
		if err != nil {
			return nil, err
		}
		keys = append(keys, tableKeys...)
	}

	fks, err := intro.ListForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	return &AnalysisResult{
		Tables:        tables,
		Keys:          keys,
		Relationships: inferRelationships(tables, keys, fks),
	}, nil
}

// captureTables reads the full schema of a datasource: tables, columns,
// and the per-column statistics the key guesser needs.
func captureTables(ctx context.Context, intro datasource.Introspector) ([]*models.SnapshotTable, error) {
	tableInfos, err := intro.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]*models.SnapshotTable, 0, len(tableInfos))
	for _, ti := range tableInfos {
		t := &models.SnapshotTable{
			SchemaName: ti.SchemaName,
			TableName:  ti.TableName,
			RowCount:   ti.RowCount,
		}

		colInfos, err := intro.ListColumns(ctx, ti.SchemaName, ti.TableName)
		if err != nil {
			return nil, fmt.Errorf("list columns for %s: %w", t.QualifiedName(), err)
		}

		colNames := make([]string, len(colInfos))
		for i, ci := range colInfos {
			colNames[i] = ci.ColumnName
		}

		stats, err := intro.ColumnStats(ctx, ti.SchemaName, ti.TableName, colNames)
		if err != nil {
			return nil, fmt.Errorf("column stats for %s: %w", t.QualifiedName(), err)
		}
		statsByName := make(map[string]datasource.ColumnStats, len(stats))
		for _, st := range stats {
			statsByName[st.ColumnName] = st
		}

		for _, ci := range colInfos {
			col := models.SnapshotColumn{
				ColumnName:      ci.ColumnName,
				DataType:        ci.DataType,
				IsNullable:      ci.IsNullable,
				IsPrimaryKey:    ci.IsPrimaryKey,
				IsUnique:        ci.IsUnique,
				OrdinalPosition: ci.OrdinalPosition,
				DefaultValue:    ci.DefaultValue,
			}
			if st, ok := statsByName[ci.ColumnName]; ok && st.RowCount > 0 {
				nonNull, distinct := st.NonNullCount, st.DistinctCount
				col.NonNullCount = &nonNull
				col.DistinctCount = &distinct
			}
			t.Columns = append(t.Columns, col)
		}

		tables = append(tables, t)
	}

	return tables, nil
}

// clampKeyGuessConfig normalizes MaxKeyColumns into [1, MaxKeyColumnsLimit].
func clampKeyGuessConfig(cfg KeyGuessConfig) KeyGuessConfig {
	if cfg.MaxKeyColumns < 1 {
		cfg.MaxKeyColumns = 1
	}
	if cfg.MaxKeyColumns > MaxKeyColumnsLimit {
		cfg.MaxKeyColumns = MaxKeyColumnsLimit
	}
	return cfg
}
