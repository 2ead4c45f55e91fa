package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
	"github.com/schemalens/schemalens/pkg/models"
	"github.com/schemalens/schemalens/pkg/repositories"
)

// MaxKeyColumnsLimit caps how wide a combination the guesser will ever
// test, regardless of configuration.
const MaxKeyColumnsLimit = 6

// KeyGuessConfig tunes the candidate-key search.
type KeyGuessConfig struct {
	// MaxKeyColumns is the widest combination to test (1..6).
	MaxKeyColumns int
	// MaxGuesses bounds the total number of uniqueness probes per table.
	// Zero means unlimited.
	MaxGuesses int
}

// uniquenessProber is the slice of the introspector the guesser needs.
// Kept narrow so tests can probe against an in-memory fixture.
type uniquenessProber interface {
	CountDistinct(ctx context.Context, schemaName, tableName string, columnNames []string) (int64, error)
}

// KeyGuessService discovers candidate keys for snapshot tables.
type KeyGuessService interface {
	// Guess discovers candidate keys for every table in the datasource's
	// snapshot and replaces the stored result.
	Guess(ctx context.Context, datasourceID uuid.UUID) ([]*models.CandidateKey, error)
	// List returns stored candidate keys.
	List(ctx context.Context, datasourceID uuid.UUID) ([]*models.CandidateKey, error)
}

type keyGuessService struct {
	datasourceRepo repositories.DatasourceRepository
	snapshotRepo   repositories.SnapshotRepository
	inferenceRepo  repositories.InferenceRepository
	cfg            KeyGuessConfig
	logger         *zap.Logger
}

// NewKeyGuessService creates a new KeyGuessService.
func NewKeyGuessService(
	datasourceRepo repositories.DatasourceRepository,
	snapshotRepo repositories.SnapshotRepository,
	inferenceRepo repositories.InferenceRepository,
	cfg KeyGuessConfig,
	logger *zap.Logger,
) KeyGuessService {
	return &keyGuessService{
		datasourceRepo: datasourceRepo,
		snapshotRepo:   snapshotRepo,
		inferenceRepo:  inferenceRepo,
		cfg:            clampKeyGuessConfig(cfg),
		logger:         logger.Named("keyguess"),
	}
}

func (s *keyGuessService) Guess(ctx context.Context, datasourceID uuid.UUID) ([]*models.CandidateKey, error) {
	ds, err := s.datasourceRepo.GetByID(ctx, datasourceID)
	if err != nil {
		return nil, err
	}

	tables, err := s.snapshotRepo.ListTables(ctx, datasourceID)
	if err != nil {
		return nil, err
	}

	intro, err := datasource.New(ctx, ds.Type, ds.DSN, s.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to datasource %q: %w", ds.Name, err)
	}
	defer intro.Close()

	constraints, err := intro.ListKeyConstraints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list key constraints for %q: %w", ds.Name, err)
	}
	constraintsByTable := groupConstraints(constraints)

	var keys []*models.CandidateKey
	for _, t := range tables {
		tableKeys, err := s.guessTable(ctx, intro, t, constraintsByTable[t.QualifiedName()])
		if err != nil {
			return nil, err
		}
		keys = append(keys, tableKeys...)
	}

	if err := s.inferenceRepo.ReplaceCandidateKeys(ctx, datasourceID, keys); err != nil {
		return nil, err
	}

	s.logger.Info("Candidate key discovery finished",
		zap.String("datasource", ds.Name),
		zap.Int("table_count", len(tables)),
		zap.Int("key_count", len(keys)))

	return keys, nil
}

func (s *keyGuessService) List(ctx context.Context, datasourceID uuid.UUID) ([]*models.CandidateKey, error) {
	return s.inferenceRepo.ListCandidateKeys(ctx, datasourceID)
}

// guessTable finds candidate keys for one table. Declared constraints win:
// if the catalog already names a primary key or unique column set, those are
// returned and the cardinality search is skipped.
func (s *keyGuessService) guessTable(ctx context.Context, prober uniquenessProber, t *models.SnapshotTable, constraints []datasource.KeyConstraint) ([]*models.CandidateKey, error) {
	declared := declaredKeys(t, constraints)
	if len(declared) > 0 {
		return declared, nil
	}

	// An empty table has no rows to distinguish; every column set is
	// vacuously unique, so no key is reported.
	if t.RowCount == 0 {
		s.logger.Debug("Skipping empty table", zap.String("table", t.QualifiedName()))
		return nil, nil
	}

	return s.searchKeys(ctx, prober, t)
}

// groupConstraints indexes declared key constraints by qualified table name.
func groupConstraints(constraints []datasource.KeyConstraint) map[string][]datasource.KeyConstraint {
	byTable := make(map[string][]datasource.KeyConstraint, len(constraints))
	for _, kc := range constraints {
		name := qualify(kc.SchemaName, kc.TableName)
		byTable[name] = append(byTable[name], kc)
	}
	return byTable
}

// declaredKeys converts catalog constraints and per-column flags into
// candidate keys. Constraints carry the multi-column unique sets; the
// column flags catch unique indexes some catalogs never report as
// constraints. Duplicate column sets collapse to one key.
func declaredKeys(t *models.SnapshotTable, constraints []datasource.KeyConstraint) []*models.CandidateKey {
	nullable := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		nullable[c.ColumnName] = c.IsNullable
	}

	var keys []*models.CandidateKey
	covered := make(map[string]bool)
	add := func(cols []string, method string) {
		k := &models.CandidateKey{
			TableID:    t.ID,
			SchemaName: t.SchemaName,
			TableName:  t.TableName,
			Columns:    cols,
			Method:     method,
			Level:      len(cols),
		}
		if covered[k.ColumnSet()] {
			return
		}
		covered[k.ColumnSet()] = true
		keys = append(keys, k)
	}

	for _, kc := range constraints {
		if kc.IsPrimary {
			add(kc.Columns, models.KeyMethodDeclaredPK)
			continue
		}
		// A unique constraint over a nullable column admits repeated NULLs,
		// so it does not identify rows.
		hasNullable := false
		for _, col := range kc.Columns {
			if nullable[col] {
				hasNullable = true
				break
			}
		}
		if !hasNullable {
			add(kc.Columns, models.KeyMethodUniqueIndex)
		}
	}

	var pkCols []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pkCols = append(pkCols, c.ColumnName)
		}
	}
	if len(pkCols) > 0 {
		add(pkCols, models.KeyMethodDeclaredPK)
	}

	for _, c := range t.Columns {
		if c.IsUnique && !c.IsPrimaryKey && !c.IsNullable {
			add([]string{c.ColumnName}, models.KeyMethodUniqueIndex)
		}
	}

	return keys
}

// searchKeys runs the cardinality search: test single columns, then pairs,
// widening until a level yields at least one key or the level cap is hit.
// Columns containing NULLs are excluded up front. Probing stops once the
// guess budget is spent.
func (s *keyGuessService) searchKeys(ctx context.Context, prober uniquenessProber, t *models.SnapshotTable) ([]*models.CandidateKey, error) {
	// Eligible columns in ordinal order, so repeated runs over the same
	// snapshot test combinations in the same sequence.
	var eligible []models.SnapshotColumn
	for _, c := range t.Columns {
		if c.HasNulls(t.RowCount) {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		s.logger.Debug("No key-eligible columns",
			zap.String("table", t.QualifiedName()))
		return nil, nil
	}

	guesses := 0
	budgetLeft := func() bool {
		return s.cfg.MaxGuesses == 0 || guesses < s.cfg.MaxGuesses
	}

	var keys []*models.CandidateKey
	for level := 1; level <= s.cfg.MaxKeyColumns && level <= len(eligible); level++ {
		for _, combo := range combinations(len(eligible), level) {
			if !budgetLeft() {
				s.logger.Warn("Guess budget exhausted",
					zap.String("table", t.QualifiedName()),
					zap.Int("max_guesses", s.cfg.MaxGuesses),
					zap.Int("level", level))
				return keys, nil
			}

			cols := make([]string, level)
			for i, idx := range combo {
				cols[i] = eligible[idx].ColumnName
			}

			// Single-column cardinality is already in the snapshot stats;
			// use it instead of a round trip.
			var distinct int64
			if level == 1 && eligible[combo[0]].DistinctCount != nil {
				distinct = *eligible[combo[0]].DistinctCount
			} else {
				var err error
				distinct, err = prober.CountDistinct(ctx, t.SchemaName, t.TableName, cols)
				if err != nil {
					return nil, fmt.Errorf("probe %s(%v): %w", t.QualifiedName(), cols, err)
				}
				guesses++
			}

			if distinct == t.RowCount {
				keys = append(keys, &models.CandidateKey{
					TableID:    t.ID,
					SchemaName: t.SchemaName,
					TableName:  t.TableName,
					Columns:    cols,
					Method:     models.KeyMethodGuessed,
					Level:      level,
				})
			}
		}

		// A key at this width makes wider combinations redundant.
		if len(keys) > 0 {
			break
		}
	}

	return keys, nil
}

// combinations returns all k-element index combinations of [0, n) in
// lexicographic order.
func combinations(n, k int) [][]int {
	if k > n || k <= 0 {
		return nil
	}

	var result [][]int
	combo := make([]int, k)
	for i := range combo {
		combo[i] = i
	}
	for {
		result = append(result, append([]int(nil), combo...))

		// Advance to the next combination.
		i := k - 1
		for i >= 0 && combo[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		combo[i]++
		for j := i + 1; j < k; j++ {
			combo[j] = combo[j-1] + 1
		}
	}
	return result
}
