package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
	"github.com/schemalens/schemalens/pkg/models"
	"github.com/schemalens/schemalens/pkg/repositories"
)

// Confidence assigned per detection method. Declared constraints are
// ground truth; shared key column sets are strong but circumstantial.
const (
	confidenceFK           = 1.0
	confidenceKeyMatch1to1 = 0.9
	confidenceKeyMatch1toN = 0.75
)

// RelationshipService infers relationships between snapshot tables.
type RelationshipService interface {
	// Infer derives relationships from declared foreign keys and candidate
	// key matches, replacing the stored result. Candidate keys must have
	// been discovered first.
	Infer(ctx context.Context, datasourceID uuid.UUID) ([]*models.Relationship, error)
	// List returns stored relationships.
	List(ctx context.Context, datasourceID uuid.UUID) ([]*models.Relationship, error)
}

type relationshipService struct {
	datasourceRepo repositories.DatasourceRepository
	snapshotRepo   repositories.SnapshotRepository
	inferenceRepo  repositories.InferenceRepository
	logger         *zap.Logger
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(
	datasourceRepo repositories.DatasourceRepository,
	snapshotRepo repositories.SnapshotRepository,
	inferenceRepo repositories.InferenceRepository,
	logger *zap.Logger,
) RelationshipService {
	return &relationshipService{
		datasourceRepo: datasourceRepo,
		snapshotRepo:   snapshotRepo,
		inferenceRepo:  inferenceRepo,
		logger:         logger.Named("relationships"),
	}
}

func (s *relationshipService) Infer(ctx context.Context, datasourceID uuid.UUID) ([]*models.Relationship, error) {
	ds, err := s.datasourceRepo.GetByID(ctx, datasourceID)
	if err != nil {
		return nil, err
	}

	tables, err := s.snapshotRepo.ListTables(ctx, datasourceID)
	if err != nil {
		return nil, err
	}

	keys, err := s.inferenceRepo.ListCandidateKeys(ctx, datasourceID)
	if err != nil {
		return nil, err
	}

	intro, err := datasource.New(ctx, ds.Type, ds.DSN, s.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to datasource %q: %w", ds.Name, err)
	}
	defer intro.Close()

	fks, err := intro.ListForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys for %q: %w", ds.Name, err)
	}

	rels := inferRelationships(tables, keys, fks)

	if err := s.inferenceRepo.ReplaceRelationships(ctx, datasourceID, rels); err != nil {
		return nil, err
	}

	s.logger.Info("Relationship inference finished",
		zap.String("datasource", ds.Name),
		zap.Int("fk_count", len(fks)),
		zap.Int("relationship_count", len(rels)))

	return rels, nil
}

func (s *relationshipService) List(ctx context.Context, datasourceID uuid.UUID) ([]*models.Relationship, error) {
	return s.inferenceRepo.ListRelationships(ctx, datasourceID)
}

// inferRelationships combines two evidence sources:
//
//  1. Declared foreign keys, imported as-is with full confidence. The
//     referenced table owns the key, so it takes the "one" side.
//  2. Candidate key matches: a table whose candidate key columns all appear
//     in another table links the two. Identical key sets on both sides mean
//     one-to-one; otherwise the key owner is the "one" side of a
//     one-to-many.
//
// Self matches are excluded, and a table pair already linked through a
// declared foreign key on the same columns is not reported twice.
func inferRelationships(tables []*models.SnapshotTable, keys []*models.CandidateKey, fks []datasource.ForeignKey) []*models.Relationship {
	tablesByName := make(map[string]*models.SnapshotTable, len(tables))
	for _, t := range tables {
		tablesByName[t.QualifiedName()] = t
	}

	keysByTable := make(map[uuid.UUID][]*models.CandidateKey, len(keys))
	for _, k := range keys {
		keysByTable[k.TableID] = append(keysByTable[k.TableID], k)
	}

	var rels []*models.Relationship
	seen := make(map[string]bool)
	mark := func(sourceID, targetID uuid.UUID, cols []string) string {
		set := append([]string(nil), cols...)
		sort.Strings(set)
		return sourceID.String() + "|" + targetID.String() + "|" + strings.Join(set, ",")
	}

	// Declared foreign keys first.
	for _, fk := range fks {
		parent := tablesByName[qualify(fk.TargetSchema, fk.TargetTable)]
		child := tablesByName[qualify(fk.SourceSchema, fk.SourceTable)]
		if parent == nil || child == nil || parent.ID == child.ID {
			continue
		}

		cardinality := models.CardinalityOneToMany
		if hasKeyOnColumns(keysByTable[child.ID], fk.SourceColumns) {
			cardinality = models.CardinalityOneToOne
		}

		key := mark(parent.ID, child.ID, fk.TargetColumns)
		if seen[key] {
			continue
		}
		seen[key] = true

		rels = append(rels, &models.Relationship{
			SourceTableID: parent.ID,
			TargetTableID: child.ID,
			SourceSchema:  parent.SchemaName,
			SourceTable:   parent.TableName,
			TargetSchema:  child.SchemaName,
			TargetTable:   child.TableName,
			SourceColumns: fk.TargetColumns,
			TargetColumns: fk.SourceColumns,
			Cardinality:   cardinality,
			Method:        models.RelationshipMethodFK,
			Confidence:    confidenceFK,
			Label:         relationshipLabel(parent.TableName, child.TableName, cardinality),
		})
	}

	// Candidate key matches.
	for _, owner := range tables {
		for _, key := range keysByTable[owner.ID] {
			for _, other := range tables {
				if other.ID == owner.ID {
					continue
				}
				if !containsColumns(other, key.Columns) {
					continue
				}

				cardinality := models.CardinalityOneToMany
				confidence := confidenceKeyMatch1toN
				if hasKeyOnColumns(keysByTable[other.ID], key.Columns) {
					// Both tables are keyed on the same column set. Emit the
					// pair once, from the lexicographically first table.
					if owner.QualifiedName() > other.QualifiedName() {
						continue
					}
					cardinality = models.CardinalityOneToOne
					confidence = confidenceKeyMatch1to1
				}

				// A declared FK may already cover the pair in either direction.
				if seen[mark(owner.ID, other.ID, key.Columns)] || seen[mark(other.ID, owner.ID, key.Columns)] {
					continue
				}
				seen[mark(owner.ID, other.ID, key.Columns)] = true

				rels = append(rels, &models.Relationship{
					SourceTableID: owner.ID,
					TargetTableID: other.ID,
					SourceSchema:  owner.SchemaName,
					SourceTable:   owner.TableName,
					TargetSchema:  other.SchemaName,
					TargetTable:   other.TableName,
					SourceColumns: key.Columns,
					TargetColumns: key.Columns,
					Cardinality:   cardinality,
					Method:        models.RelationshipMethodKeyMatch,
					Confidence:    confidence,
					Label:         relationshipLabel(owner.TableName, other.TableName, cardinality),
				})
			}
		}
	}

	return rels
}

// relationshipLabel renders a human-readable description, e.g.
// "each customer has many orders" or "each customer has one profile".
func relationshipLabel(sourceTable, targetTable, cardinality string) string {
	if cardinality == models.CardinalityOneToOne {
		return fmt.Sprintf("each %s has one %s",
			inflection.Singular(sourceTable), inflection.Singular(targetTable))
	}
	return fmt.Sprintf("each %s has many %s",
		inflection.Singular(sourceTable), inflection.Plural(targetTable))
}

func qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

// containsColumns reports whether the table has every named column.
func containsColumns(t *models.SnapshotTable, cols []string) bool {
	names := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		names[c.ColumnName] = true
	}
	for _, col := range cols {
		if !names[col] {
			return false
		}
	}
	return true
}

// hasKeyOnColumns reports whether any candidate key covers exactly the
// given column set, order-insensitive.
func hasKeyOnColumns(keys []*models.CandidateKey, cols []string) bool {
	want := append([]string(nil), cols...)
	sort.Strings(want)
	wantSet := strings.Join(want, ",")
	for _, k := range keys {
		if k.ColumnSet() == wantSet {
			return true
		}
	}
	return false
}
