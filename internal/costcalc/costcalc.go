// Package costcalc liczy koszt zakupu po rabatach i koszt jednostkowy.
// Same czyste funkcje na decimal, bez bazy i bez stanu.
package costcalc

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Unit = "UNIT"
	Pack = "PACK"
)

var (
	ErrInvalidDiscount = errors.New("rabat poza zakresem 0-100%")

	hundred = decimal.NewFromInt(100)
)

// Input: wszystko, co potrzebne do przeliczenia jednego powiązania
type Input struct {
	RawPrice         decimal.Decimal
	SupplierDiscount decimal.Decimal // %
	FileDiscount     decimal.Decimal // %

	CurrentCostType string  // typ z powiązania
	RowCostType     *string // z kolumny typu, jeśli zmapowana

	RowUnits      *int // z kolumny szt. w opak., jeśli zmapowana
	SupplierUnits *int // domyślna ilość w opakowaniu dostawcy
	ProductUnits  *int
}

type Result struct {
	AfterSupplier decimal.Decimal `json:"after_supplier"`
	AfterFile     decimal.Decimal `json:"after_file"`
	SupplierCost  int64           `json:"supplier_cost"`
	CostType      string          `json:"cost_type"`
	UnitsPerPack  *int            `json:"units_per_pack"` // nil dla UNIT
	UnitCost      int64           `json:"unit_cost"`
}

func Compute(in Input) Result {
	var r Result
	r.AfterSupplier, r.AfterFile = Discount(in.RawPrice, in.SupplierDiscount, in.FileDiscount)
	r.SupplierCost = Round(r.AfterFile)

	r.CostType = ResolveCostType(in.CurrentCostType, in.RowCostType)
	if r.CostType == Pack {
		u := ResolveUnits(in.RowUnits, in.SupplierUnits, in.ProductUnits)
		r.UnitsPerPack = &u
		r.UnitCost = UnitCost(r.SupplierCost, Pack, u)
	} else {
		r.UnitCost = r.SupplierCost
	}
	return r
}

// Discount: cena po rabacie dostawcy, potem po rabacie z pliku.
func Discount(raw, supplierPct, filePct decimal.Decimal) (afterSupplier, afterFile decimal.Decimal) {
	afterSupplier = raw.Mul(factor(supplierPct))
	afterFile = afterSupplier.Mul(factor(filePct))
	return afterSupplier, afterFile
}

func factor(pct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(pct.Div(hundred))
}

// Round zaokrągla do całych jednostek waluty (połówki od zera), ujemne => 0.
func Round(d decimal.Decimal) int64 {
	v := d.Round(0).IntPart()
	if v < 0 {
		return 0
	}
	return v
}

// ResolveCostType: UNIT/PACK z pliku wygrywa, inaczej zostaje typ powiązania.
func ResolveCostType(current string, raw *string) string {
	if raw != nil {
		switch v := strings.ToUpper(strings.TrimSpace(*raw)); v {
		case Unit, Pack:
			return v
		}
	}
	if strings.EqualFold(current, Pack) {
		return Pack
	}
	return Unit
}

// ResolveUnits: wiersz -> dostawca -> produkt -> 1
func ResolveUnits(row, supplier, product *int) int {
	for _, v := range []*int{row, supplier, product} {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 1
}

func UnitCost(supplierCost int64, costType string, units int) int64 {
	if costType != Pack {
		return supplierCost
	}
	if units < 1 {
		units = 1
	}
	return Round(decimal.NewFromInt(supplierCost).Div(decimal.NewFromInt(int64(units))))
}

// ValidateDiscount sprawdza, czy procent mieści się w [0,100].
func ValidateDiscount(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	return nil
}
