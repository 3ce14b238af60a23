package importer

import (
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/bartek5186/cennik/internal/db"
)

// matcher łączy SKU z cennika z aktywnymi powiązaniami dostawcy.
// Jedno SKU może wskazywać wiele powiązań: wtedy aktualizujemy wszystkie.
type matcher struct {
	log           zerolog.Logger
	caseSensitive bool
}

func (m matcher) key(sku string) string {
	sku = strings.TrimSpace(sku)
	if m.caseSensitive {
		return sku
	}
	return strings.ToLower(sku)
}

// index wczytuje aktywne powiązania dostawcy i grupuje je po kluczu SKU.
// Zawsze świeży odczyt z bazy (apply nie ufa wynikowi z etapu dopasowania).
func (m matcher) index(tx *gorm.DB, supplierID uint) (map[string][]db.ProductSupplier, error) {
	var ps []db.ProductSupplier
	if err := tx.Preload("Product").
		Where("supplier_id = ? AND active = ?", supplierID, true).
		Order("id").
		Find(&ps).Error; err != nil {
		return nil, err
	}

	bySKU := make(map[string][]db.ProductSupplier, len(ps))
	emptySKU := 0
	for _, p := range ps {
		k := m.key(p.SupplierSKU)
		if k == "" {
			emptySKU++
			continue
		}
		bySKU[k] = append(bySKU[k], p)
	}

	m.log.Debug().
		Uint("supplier_id", supplierID).
		Int("associations", len(ps)).
		Int("empty_sku", emptySKU).
		Int("index_keys", len(bySKU)).
		Msg("matcher: index built")
	return bySKU, nil
}

type matchStats struct {
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Multi     int `json:"multi"` // SKU z więcej niż jednym powiązaniem
}

// classify ustawia status wierszy; zwraca indeksy wierszy, które się zmieniły.
func (m matcher) classify(rows []db.ImportRow, bySKU map[string][]db.ProductSupplier) (matchStats, []int) {
	var (
		st       matchStats
		changed  []int
		dbgShown int
	)
	const maxDbg = 10

	for i := range rows {
		r := &rows[i]
		before := *r

		r.MatchCount = 0
		if k := m.key(r.SupplierSKU); k != "" {
			r.MatchCount = len(bySKU[k])
		}

		if r.MatchCount > 0 && r.HasValidPrice() {
			r.Status = db.RowMatched
			r.ChosenByRule = true
			st.Matched++
			if r.MatchCount > 1 {
				st.Multi++
			}
		} else {
			r.Status = db.RowUnmatched
			r.ChosenByRule = false
			st.Unmatched++
			if dbgShown < maxDbg {
				m.log.Debug().
					Int("line", r.LineNo).
					Str("sku", r.SupplierSKU).
					Int("candidates", r.MatchCount).
					Bool("valid_price", r.HasValidPrice()).
					Msg("matcher: row left unmatched")
				dbgShown++
			}
		}

		if before.Status != r.Status || before.ChosenByRule != r.ChosenByRule || before.MatchCount != r.MatchCount {
			changed = append(changed, i)
		}
	}
	return st, changed
}
