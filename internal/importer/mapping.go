package importer

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/bartek5186/cennik/internal/analyze"
	"github.com/bartek5186/cennik/internal/db"
	"github.com/bartek5186/cennik/internal/table"
)

var validate = validator.New()

// Mapping: potwierdzone przez operatora przypisanie kolumn do ról.
// Wartości to nazwy kolumn z nagłówka; puste CostType/UnitsPerPack = nie mapujemy.
type Mapping struct {
	SKU          string `json:"sku" validate:"required,max=255"`
	Price        string `json:"price" validate:"required,max=255,nefield=SKU"`
	CostType     string `json:"cost_type,omitempty" validate:"max=255"`
	UnitsPerPack string `json:"units_per_pack,omitempty" validate:"max=255"`
}

// Validate sprawdza nazwy po obcięciu spacji: " " to brak kolumny.
func (m Mapping) Validate() error {
	if err := validate.Struct(m.trimmed()); err != nil {
		return fmt.Errorf("%w: %v", ErrMappingRequired, err)
	}
	return nil
}

func (m Mapping) trimmed() Mapping {
	return Mapping{
		SKU:          strings.TrimSpace(m.SKU),
		Price:        strings.TrimSpace(m.Price),
		CostType:     strings.TrimSpace(m.CostType),
		UnitsPerPack: strings.TrimSpace(m.UnitsPerPack),
	}
}

// FromProposal: mapowanie z podpowiedzi analizatora (CLI, testy)
func FromProposal(p analyze.Proposal) Mapping {
	return Mapping{SKU: p.SKU, Price: p.Price, CostType: p.CostType, UnitsPerPack: p.UnitsPerPack}
}

// kolumny po rozwiązaniu nazw; -1 = niezmapowana
type columns struct {
	sku, price, costType, units int
}

func (m Mapping) resolve(t *table.Table) (columns, error) {
	c := columns{sku: -1, price: -1, costType: -1, units: -1}
	var missing, blank []string

	find := func(role, name string, required bool, dst *int) {
		if strings.TrimSpace(name) == "" {
			if required {
				blank = append(blank, role)
			}
			return
		}
		i, ok := t.Column(name)
		if !ok {
			missing = append(missing, name)
			return
		}
		*dst = i
	}
	find("sku", m.SKU, true, &c.sku)
	find("price", m.Price, true, &c.price)
	find("cost_type", m.CostType, false, &c.costType)
	find("units_per_pack", m.UnitsPerPack, false, &c.units)

	if len(blank) > 0 {
		return c, fmt.Errorf("%w: brak kolumny dla %s", ErrMappingRequired, strings.Join(blank, ", "))
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: %s", ErrUnknownColumn, strings.Join(missing, ", "))
	}
	// nagłówki porównujemy bez wielkości liter, więc "SKU" i "sku" to ta sama kolumna
	if c.sku == c.price {
		return c, fmt.Errorf("%w: sku i price wskazują tę samą kolumnę", ErrMappingRequired)
	}
	return c, nil
}

// extract buduje wiersze importu z tabeli; LineNo = numer wiersza danych (od 1).
func (c columns) extract(runID uint, t *table.Table) []db.ImportRow {
	rows := make([]db.ImportRow, 0, len(t.Rows))
	for i, rec := range t.Rows {
		r := db.ImportRow{
			RunID:       runID,
			LineNo:      i + 1,
			SupplierSKU: strings.TrimSpace(rec[c.sku]),
			Status:      db.RowUnmatched,
		}
		if d, ok := analyze.ParseDecimal(rec[c.price]); ok {
			r.RawPrice = decimal.NewNullDecimal(d)
		}
		if c.costType >= 0 {
			if v := strings.TrimSpace(rec[c.costType]); v != "" {
				r.RawCostType = &v
			}
		}
		if c.units >= 0 {
			if v, ok := analyze.ParseInt(rec[c.units]); ok {
				r.RawUnitsPerPack = &v
			}
		}
		rows = append(rows, r)
	}
	return rows
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
