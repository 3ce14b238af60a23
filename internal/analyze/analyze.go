// Package analyze zgaduje role kolumn w sparsowanym cenniku i proponuje mapowanie.
// Propozycja jest tylko podpowiedzią, decyduje operator.
package analyze

import (
	"errors"
	"strings"
	"unicode"

	"github.com/bartek5186/cennik/internal/table"
)

var ErrNoDataRows = errors.New("cennik nie zawiera wierszy danych")

type Kind string

const (
	KindText    Kind = "text"
	KindPrice   Kind = "price"
	KindCode    Kind = "code"
	KindInteger Kind = "integer"
	KindEmpty   Kind = "empty"
)

const (
	maxSamples   = 5
	codeMaxLen   = 8
	codeMaxUniq  = 5
	defSample    = 50
	defThreshold = 0.8
)

type Options struct {
	Sample    int     // ile niepustych komórek na kolumnę oglądamy
	Threshold float64 // jaki ułamek próbek musi pasować do rodzaju
}

func (o Options) withDefaults() Options {
	if o.Sample <= 0 {
		o.Sample = defSample
	}
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = defThreshold
	}
	return o
}

type ColumnSummary struct {
	Index    int      `json:"index"`
	Header   string   `json:"header"`
	Kind     Kind     `json:"kind"`
	NonEmpty int      `json:"non_empty"`
	Samples  []string `json:"samples"`
}

// Proposal: nazwy kolumn zaproponowane dla ról; "" = brak propozycji
type Proposal struct {
	SKU          string `json:"sku,omitempty"`
	Price        string `json:"price,omitempty"`
	CostType     string `json:"cost_type,omitempty"`
	UnitsPerPack string `json:"units_per_pack,omitempty"`
}

type Summary struct {
	TotalRows int             `json:"total_rows"`
	Headers   []string        `json:"headers"`
	Columns   []ColumnSummary `json:"columns"`
	Proposed  Proposal        `json:"proposed"`
}

func Analyze(t *table.Table, opts Options) (*Summary, error) {
	if t == nil || len(t.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	opts = opts.withDefaults()

	s := &Summary{
		TotalRows: len(t.Rows),
		Headers:   append([]string(nil), t.Header...),
		Columns:   make([]ColumnSummary, len(t.Header)),
	}
	for i, h := range t.Header {
		s.Columns[i] = summarize(t, i, h, opts)
	}
	s.Proposed = propose(s.Columns)
	return s, nil
}

func summarize(t *table.Table, idx int, header string, opts Options) ColumnSummary {
	cs := ColumnSummary{Index: idx, Header: header, Samples: []string{}}
	var sampled []string
	seen := map[string]bool{}

	for _, row := range t.Rows {
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		cs.NonEmpty++
		if len(sampled) < opts.Sample {
			sampled = append(sampled, v)
		}
		if len(cs.Samples) < maxSamples && !seen[v] {
			seen[v] = true
			cs.Samples = append(cs.Samples, v)
		}
	}
	cs.Kind = Classify(sampled, opts.Threshold)
	return cs
}

// Classify przypisuje rodzaj zestawowi niepustych wartości.
// Kolejność: integer, price, code, text.
func Classify(values []string, threshold float64) Kind {
	if len(values) == 0 {
		return KindEmpty
	}
	need := threshold * float64(len(values))

	var ints, prices, codes int
	uniq := map[string]struct{}{}
	for _, v := range values {
		if isDigits(v) {
			ints++
		}
		if d, ok := ParseDecimal(v); ok && !d.IsNegative() {
			prices++
		}
		if isCodeToken(v) {
			codes++
			uniq[strings.ToUpper(v)] = struct{}{}
		}
	}

	switch {
	case float64(ints) >= need:
		return KindInteger
	case float64(prices) >= need:
		return KindPrice
	case float64(codes) >= need && len(uniq) <= codeMaxUniq:
		return KindCode
	default:
		return KindText
	}
}

func isCodeToken(s string) bool {
	n := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
		n++
	}
	return n > 0 && n <= codeMaxLen
}

type role int

const (
	roleNone role = iota
	roleSKU
	rolePrice
	roleCostType
	roleUnits
)

// prefiksy słów w nagłówku (EN/PL); kolejność ról ma znaczenie:
// "cost type" to typ, "pack price" to cena
var roleKeywords = []struct {
	role  role
	words []string
}{
	{roleCostType, []string{"type", "typ", "jm", "rodzaj"}},
	{roleSKU, []string{"sku", "kod", "code", "symbol", "indeks", "index", "ean"}},
	{rolePrice, []string{"price", "cen", "cost", "koszt", "netto"}},
	{roleUnits, []string{"unit", "pack", "opak", "szt", "ilo"}},
}

func headerRole(h string) role {
	words := strings.FieldsFunc(strings.ToLower(h), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rk := range roleKeywords {
		for _, w := range words {
			for _, k := range rk.words {
				if strings.HasPrefix(w, k) {
					return rk.role
				}
			}
		}
	}
	return roleNone
}

func propose(cols []ColumnSummary) Proposal {
	var p Proposal
	used := map[int]bool{}
	slot := func(r role) *string {
		switch r {
		case roleSKU:
			return &p.SKU
		case rolePrice:
			return &p.Price
		case roleCostType:
			return &p.CostType
		case roleUnits:
			return &p.UnitsPerPack
		}
		return nil
	}

	// najpierw nagłówki
	for _, c := range cols {
		dst := slot(headerRole(c.Header))
		if dst == nil || *dst != "" || c.Header == "" {
			continue
		}
		*dst = c.Header
		used[c.Index] = true
	}

	// potem rodzaje kolumn
	pick := func(dst *string, ok func(ColumnSummary) bool) {
		if *dst != "" {
			return
		}
		for _, c := range cols {
			if used[c.Index] || c.Header == "" || !ok(c) {
				continue
			}
			*dst = c.Header
			used[c.Index] = true
			return
		}
	}
	pick(&p.CostType, func(c ColumnSummary) bool {
		return c.Kind == KindCode && onlyCostTypes(c.Samples)
	})
	pick(&p.Price, func(c ColumnSummary) bool { return c.Kind == KindPrice })
	pick(&p.SKU, func(c ColumnSummary) bool { return c.Kind == KindText || c.Kind == KindInteger })
	pick(&p.Price, func(c ColumnSummary) bool { return c.Kind == KindInteger })
	return p
}

func onlyCostTypes(samples []string) bool {
	if len(samples) == 0 {
		return false
	}
	for _, s := range samples {
		switch strings.ToUpper(s) {
		case "UNIT", "PACK":
		default:
			return false
		}
	}
	return true
}
