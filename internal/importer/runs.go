package importer

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bartek5186/cennik/internal/db"
)

const batchSize = 500

// RunStore: zapis i odczyt runów importu; działa na *gorm.DB albo na transakcji.
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(gdb *gorm.DB) *RunStore { return &RunStore{db: gdb} }

func (s *RunStore) WithTx(tx *gorm.DB) *RunStore { return &RunStore{db: tx} }

func (s *RunStore) Create(run *db.ImportRun) error {
	return s.db.Create(run).Error
}

func (s *RunStore) ByToken(token string) (*db.ImportRun, error) {
	var run db.ImportRun
	if err := s.db.Where("token = ?", token).Take(&run).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// Lock czyta run z blokadą wiersza. sqlite nie zna FOR UPDATE,
// więc tam pusty UPDATE zakłada blokadę zapisu na całą transakcję.
func (s *RunStore) Lock(token string) (*db.ImportRun, error) {
	q := s.db.Where("token = ?", token)
	if db.SupportsRowLocks(s.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	} else if err := s.db.Exec("UPDATE import_runs SET applied_by = applied_by WHERE token = ?", token).Error; err != nil {
		return nil, err
	}
	var run db.ImportRun
	if err := q.Take(&run).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// ReplaceRows czyści poprzednie wiersze runu i zapisuje nowe (ponowne mapowanie).
func (s *RunStore) ReplaceRows(runID uint, rows []db.ImportRow) error {
	if err := s.db.Where("run_id = ?", runID).Delete(&db.ImportRow{}).Error; err != nil {
		return fmt.Errorf("czyszczenie import_rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.CreateInBatches(rows, batchSize).Error
}

func (s *RunStore) Rows(runID uint) ([]db.ImportRow, error) {
	var rows []db.ImportRow
	err := s.db.Where("run_id = ?", runID).Order("line_no").Find(&rows).Error
	return rows, err
}

// ChosenRows: wiersze do zatwierdzenia
func (s *RunStore) ChosenRows(runID uint) ([]db.ImportRow, error) {
	var rows []db.ImportRow
	err := s.db.Where("run_id = ? AND status = ? AND chosen_by_rule = ?", runID, db.RowMatched, true).
		Order("line_no").Find(&rows).Error
	return rows, err
}

func (s *RunStore) UpdateMatch(r *db.ImportRow) error {
	return s.db.Model(&db.ImportRow{}).Where("id = ?", r.ID).Updates(map[string]any{
		"status":         r.Status,
		"chosen_by_rule": r.ChosenByRule,
		"match_count":    r.MatchCount,
	}).Error
}

func (s *RunStore) SaveMapping(run *db.ImportRun, m Mapping, at time.Time) error {
	run.SKUColumn = m.SKU
	run.PriceColumn = m.Price
	run.CostTypeColumn = optional(m.CostType)
	run.UnitsPerPackColumn = optional(m.UnitsPerPack)
	run.MappedAt = &at
	return s.db.Model(&db.ImportRun{}).Where("id = ?", run.ID).Updates(map[string]any{
		"sku_column":            run.SKUColumn,
		"price_column":          run.PriceColumn,
		"cost_type_column":      run.CostTypeColumn,
		"units_per_pack_column": run.UnitsPerPackColumn,
		"mapped_at":             at,
	}).Error
}

// MarkApplied: ostatni zapis transakcji apply. Zero zmienionych wierszy
// oznacza, że ktoś zatwierdził run w międzyczasie.
func (s *RunStore) MarkApplied(runID uint, actorID *uint, at time.Time) error {
	res := s.db.Model(&db.ImportRun{}).
		Where("id = ? AND applied_at IS NULL", runID).
		Updates(map[string]any{"applied_at": at, "applied_by": actorID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentApply
	}
	return nil
}

func (s *RunStore) History(runID uint) ([]db.CostHistoryEntry, error) {
	var out []db.CostHistoryEntry
	err := s.db.Where("run_id = ?", runID).Order("id").Find(&out).Error
	return out, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRunNotFound
	}
	return err
}
