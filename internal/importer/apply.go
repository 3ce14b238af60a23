package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bartek5186/cennik/internal/costcalc"
	"github.com/bartek5186/cennik/internal/db"
)

type ApplyResult struct {
	Token          string `json:"token"`
	AlreadyApplied bool   `json:"already_applied"`
	RowsApplied    int    `json:"rows_applied"`
	Associations   int    `json:"associations_updated"`
	HistoryEntries int    `json:"history_entries"`
}

// Apply zatwierdza koszty z runu w jednej transakcji. Run już zatwierdzony
// to wynik bez zapisów (AlreadyApplied), nie błąd.
func (s *Service) Apply(ctx context.Context, token string, actorID *uint) (*ApplyResult, error) {
	// raz rozpoczęte zatwierdzanie nie jest przerywane przez klienta
	ctx = context.WithoutCancel(ctx)
	log := s.log.With().Str("run", token).Logger()

	out := &ApplyResult{Token: token}

	// ponowne zatwierdzenie kończy się na odczycie, bez żadnego zapisu
	run, err := s.store(ctx).ByToken(token)
	if err != nil {
		return nil, err
	}
	if run.Applied() {
		out.AlreadyApplied = true
		log.Info().Msg("apply: run already applied, nothing to do")
		return out, nil
	}
	if !run.Mapped() {
		return nil, ErrRunNotMapped
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.store(ctx).WithTx(tx)
		run, err := st.Lock(token)
		if err != nil {
			return err
		}
		if run.Applied() {
			out.AlreadyApplied = true
			return nil
		}
		if !run.Mapped() {
			return ErrRunNotMapped
		}

		var sup db.Supplier
		if err := tx.Take(&sup, run.SupplierID).Error; err != nil {
			return fmt.Errorf("dostawca %d: %w", run.SupplierID, err)
		}

		rows, err := st.ChosenRows(run.ID)
		if err != nil {
			return err
		}
		bySKU, err := s.match.index(tx, run.SupplierID)
		if err != nil {
			return err
		}

		now := s.now()
		for i := range rows {
			r := &rows[i]
			if !r.HasValidPrice() {
				continue
			}
			targets := bySKU[s.match.key(r.SupplierSKU)]
			if len(targets) == 0 {
				log.Warn().Int("line", r.LineNo).Str("sku", r.SupplierSKU).Msg("apply: no active association anymore, skipping")
				continue
			}
			for j := range targets {
				if err := s.applyOne(tx, run, &sup, r, &targets[j], actorID, now); err != nil {
					return fmt.Errorf("linia %d, sku %s: %w", r.LineNo, r.SupplierSKU, err)
				}
				out.Associations++
				out.HistoryEntries++
			}
			out.RowsApplied++
		}

		// ostatni zapis: oznaczenie runu
		return st.MarkApplied(run.ID, actorID, now)
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrRunNotFound), errors.Is(err, ErrRunNotMapped):
		return nil, err
	default:
		applyFailures.Inc()
		log.Error().Err(err).Msg("apply rolled back")
		return nil, fmt.Errorf("%w: %w", ErrApplyFailed, err)
	}

	if out.AlreadyApplied {
		log.Info().Msg("apply: run already applied, nothing to do")
		return out, nil
	}

	runsApplied.Inc()
	historyWritten.Add(float64(out.HistoryEntries))
	log.Info().
		Int("rows", out.RowsApplied).
		Int("associations", out.Associations).
		Int("history", out.HistoryEntries).
		Msg("run applied")
	return out, nil
}

func (s *Service) applyOne(tx *gorm.DB, run *db.ImportRun, sup *db.Supplier, r *db.ImportRow,
	ps *db.ProductSupplier, actorID *uint, now time.Time) error {

	in := costcalc.Input{
		RawPrice:         r.RawPrice.Decimal,
		SupplierDiscount: run.SupplierDiscountPercent,
		FileDiscount:     run.FileDiscountPercent,
		CurrentCostType:  ps.CostType,
		SupplierUnits:    sup.DefaultUnitsPerPack,
		ProductUnits:     ps.Product.UnitsPerPack,
	}
	if run.CostTypeColumn != nil {
		in.RowCostType = r.RawCostType
	}
	if run.UnitsPerPackColumn != nil {
		in.RowUnits = r.RawUnitsPerPack
	}
	after := costcalc.Compute(in)

	entry := db.CostHistoryEntry{
		ProductSupplierID: ps.ID,
		RunID:             run.ID,
		CostBefore:        ps.SupplierCost,
		CostAfter:         after.SupplierCost,
		UnitCostBefore:    ps.UnitCost,
		UnitCostAfter:     after.UnitCost,
		ActorID:           actorID,
		Note:              fmt.Sprintf("import %s line %d sku %s", run.Token, r.LineNo, r.SupplierSKU),
	}

	if err := tx.Model(&db.ProductSupplier{}).Where("id = ?", ps.ID).Updates(map[string]any{
		"supplier_cost":  after.SupplierCost,
		"cost_type":      after.CostType,
		"units_per_pack": after.UnitsPerPack,
		"unit_cost":      after.UnitCost,
		"updated_at":     now,
	}).Error; err != nil {
		return err
	}
	// ten sam SKU może wystąpić w pliku dwa razy: kolejny wiersz widzi nowy stan
	ps.SupplierCost = after.SupplierCost
	ps.CostType = after.CostType
	ps.UnitsPerPack = after.UnitsPerPack
	ps.UnitCost = after.UnitCost
	return tx.Create(&entry).Error
}
