// internal/db/models.go
package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	CostTypeUnit = "UNIT"
	CostTypePack = "PACK"

	SourceFile = "file"
	SourceText = "text"

	RowUnmatched = "UNMATCHED"
	RowMatched   = "MATCHED"
)

// suppliers (tabela zewnętrzna, tu tylko odczyt)
type Supplier struct {
	ID                  uint            `gorm:"primaryKey"`
	Name                string          `gorm:"not null"`
	DiscountPercent     decimal.Decimal `gorm:"type:decimal(7,3);not null;default:0"` // rabat dostawcy w %
	DefaultUnitsPerPack *int
	Active              bool `gorm:"not null"`
	CreatedAt           time.Time
}

// products (tabela zewnętrzna, tu tylko odczyt)
type Product struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	UnitsPerPack *int
}

// product_suppliers: powiązanie produkt i dostawca, aktualizowane przez apply.
// Wiele wierszy może mieć tę samą parę (supplier_id, supplier_sku).
type ProductSupplier struct {
	ID           uint   `gorm:"primaryKey"`
	ProductID    uint   `gorm:"not null;index"`
	SupplierID   uint   `gorm:"not null;index:idx_ps_supplier_sku,priority:1"`
	SupplierSKU  string `gorm:"column:supplier_sku;not null;index:idx_ps_supplier_sku,priority:2"`
	SupplierCost int64  `gorm:"not null;default:0"`
	CostType     string `gorm:"type:varchar(8);not null;default:'UNIT'"` // UNIT / PACK
	UnitsPerPack *int   // tylko dla PACK
	UnitCost     int64  `gorm:"not null;default:0"`
	Active       bool   `gorm:"not null;index"`
	UpdatedAt    time.Time

	Product  Product  `gorm:"foreignKey:ProductID"`
	Supplier Supplier `gorm:"foreignKey:SupplierID"`
}

// import_runs: jedna partia importu cennika
type ImportRun struct {
	ID         uint   `gorm:"primaryKey"`
	Token      string `gorm:"type:varchar(36);uniqueIndex;not null"`
	SupplierID uint   `gorm:"not null;index"`
	SourceKind string `gorm:"type:varchar(8);not null"` // file / text
	Filename   string
	Format     string  `gorm:"type:varchar(8);not null"` // csv/txt/xlsx
	Delimiter  *string `gorm:"type:varchar(4)"`

	SupplierDiscountPercent decimal.Decimal `gorm:"type:decimal(7,3);not null;default:0"`
	FileDiscountPercent     decimal.Decimal `gorm:"type:decimal(7,3);not null;default:0"`

	// staging: tabela + analiza (JSON)
	TableJSON    datatypes.JSON `gorm:"column:table_json"`
	AnalysisJSON datatypes.JSON `gorm:"column:analysis_json"`
	TotalRows    int

	// potwierdzone mapowanie kolumn
	SKUColumn          string  `gorm:"column:sku_column"`
	PriceColumn        string
	CostTypeColumn     *string
	UnitsPerPackColumn *string
	MappedAt           *time.Time

	CreatedBy *uint
	CreatedAt time.Time `gorm:"autoCreateTime"`
	AppliedAt *time.Time `gorm:"index"`
	AppliedBy *uint

	Supplier Supplier `gorm:"foreignKey:SupplierID"`
}

func (r *ImportRun) Applied() bool { return r.AppliedAt != nil }

func (r *ImportRun) Mapped() bool { return r.MappedAt != nil }

// import_rows: jeden wiersz cennika po mapowaniu i dopasowaniu
type ImportRow struct {
	ID              uint                `gorm:"primaryKey"`
	RunID           uint                `gorm:"not null;uniqueIndex:uniq_import_row_line,priority:1"`
	LineNo          int                 `gorm:"not null;uniqueIndex:uniq_import_row_line,priority:2"`
	SupplierSKU     string              `gorm:"column:supplier_sku;not null"`
	RawPrice        decimal.NullDecimal `gorm:"type:decimal(14,4)"`
	RawCostType     *string             `gorm:"type:varchar(32)"`
	RawUnitsPerPack *int
	Status          string `gorm:"type:varchar(12);not null;default:'UNMATCHED';index"`
	ChosenByRule    bool   `gorm:"not null;default:false"`
	MatchCount      int    `gorm:"not null;default:0"`
}

// HasValidPrice: cena niepusta i nieujemna
func (r *ImportRow) HasValidPrice() bool {
	return r.RawPrice.Valid && !r.RawPrice.Decimal.IsNegative()
}

// cost_history_entries: append-only, nigdy nie modyfikowane
type CostHistoryEntry struct {
	ID                uint  `gorm:"primaryKey"`
	ProductSupplierID uint  `gorm:"not null;index"`
	RunID             uint  `gorm:"not null;index"`
	CostBefore        int64 `gorm:"not null"`
	CostAfter         int64 `gorm:"not null"`
	UnitCostBefore    int64 `gorm:"not null"`
	UnitCostAfter     int64 `gorm:"not null"`
	ActorID           *uint
	Note              string    `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}
