package importer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bartek5186/cennik/internal/analyze"
	"github.com/bartek5186/cennik/internal/db"
)

const (
	StatusStaged  = "staged"
	StatusMapped  = "mapped"
	StatusApplied = "applied"
)

type RunView struct {
	Token            string           `json:"token"`
	SupplierID       uint             `json:"supplier_id"`
	Status           string           `json:"status"`
	SourceKind       string           `json:"source_kind"`
	Filename         string           `json:"filename,omitempty"`
	Format           string           `json:"format"`
	Delimiter        string           `json:"delimiter,omitempty"`
	SupplierDiscount decimal.Decimal  `json:"supplier_discount"`
	FileDiscount     decimal.Decimal  `json:"file_discount"`
	TotalRows        int              `json:"total_rows"`
	Summary          *analyze.Summary `json:"summary"`
	Mapping          *Mapping         `json:"mapping,omitempty"`
	CreatedBy        *uint            `json:"created_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	MappedAt         *time.Time       `json:"mapped_at,omitempty"`
	AppliedAt        *time.Time       `json:"applied_at,omitempty"`
	AppliedBy        *uint            `json:"applied_by,omitempty"`
}

func newRunView(run *db.ImportRun) (*RunView, error) {
	v := &RunView{
		Token:            run.Token,
		SupplierID:       run.SupplierID,
		Status:           StatusStaged,
		SourceKind:       run.SourceKind,
		Filename:         run.Filename,
		Format:           run.Format,
		Delimiter:        deref(run.Delimiter),
		SupplierDiscount: run.SupplierDiscountPercent,
		FileDiscount:     run.FileDiscountPercent,
		TotalRows:        run.TotalRows,
		CreatedBy:        run.CreatedBy,
		CreatedAt:        run.CreatedAt,
		MappedAt:         run.MappedAt,
		AppliedAt:        run.AppliedAt,
		AppliedBy:        run.AppliedBy,
	}
	if len(run.AnalysisJSON) > 0 {
		var sum analyze.Summary
		if err := json.Unmarshal(run.AnalysisJSON, &sum); err != nil {
			return nil, fmt.Errorf("uszkodzona analiza runu %s: %w", run.Token, err)
		}
		v.Summary = &sum
	}
	if run.Mapped() {
		v.Status = StatusMapped
		v.Mapping = &Mapping{
			SKU:          run.SKUColumn,
			Price:        run.PriceColumn,
			CostType:     deref(run.CostTypeColumn),
			UnitsPerPack: deref(run.UnitsPerPackColumn),
		}
	}
	if run.Applied() {
		v.Status = StatusApplied
	}
	return v, nil
}

type RowView struct {
	Line         int              `json:"line"`
	SKU          string           `json:"sku"`
	Price        *decimal.Decimal `json:"price"`
	CostType     *string          `json:"cost_type,omitempty"`
	UnitsPerPack *int             `json:"units_per_pack,omitempty"`
	Status       string           `json:"status"`
	ChosenByRule bool             `json:"chosen_by_rule"`
	MatchCount   int              `json:"match_count"`
}

func newRowView(r *db.ImportRow) RowView {
	v := RowView{
		Line:         r.LineNo,
		SKU:          r.SupplierSKU,
		CostType:     r.RawCostType,
		UnitsPerPack: r.RawUnitsPerPack,
		Status:       r.Status,
		ChosenByRule: r.ChosenByRule,
		MatchCount:   r.MatchCount,
	}
	if r.RawPrice.Valid {
		p := r.RawPrice.Decimal
		v.Price = &p
	}
	return v
}

type HistoryView struct {
	ProductSupplierID uint      `json:"product_supplier_id"`
	CostBefore        int64     `json:"cost_before"`
	CostAfter         int64     `json:"cost_after"`
	UnitCostBefore    int64     `json:"unit_cost_before"`
	UnitCostAfter     int64     `json:"unit_cost_after"`
	ActorID           *uint     `json:"actor_id,omitempty"`
	Note              string    `json:"note"`
	CreatedAt         time.Time `json:"created_at"`
}

func newHistoryView(e db.CostHistoryEntry) HistoryView {
	return HistoryView{
		ProductSupplierID: e.ProductSupplierID,
		CostBefore:        e.CostBefore,
		CostAfter:         e.CostAfter,
		UnitCostBefore:    e.UnitCostBefore,
		UnitCostAfter:     e.UnitCostAfter,
		ActorID:           e.ActorID,
		Note:              e.Note,
		CreatedAt:         e.CreatedAt,
	}
}
