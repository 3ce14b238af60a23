// Package table zamienia plik albo wklejony tekst na jednolitą tabelę:
// nagłówek + wiersze komórek tekstowych, każdy wiersz o długości nagłówka.
package table

import (
	"errors"
	"strings"
)

var (
	ErrNoUsableRows   = errors.New("brak użytecznych wierszy")
	ErrUnreadableFile = errors.New("plik uszkodzony albo nieczytelny")
)

type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Result: tabela + to, co wykryto po drodze
type Result struct {
	Table     *Table
	Delimiter *rune  // nil dla arkuszy
	Charset   string // kodowanie źródła tekstowego ("utf-8" albo fallback)
}

// Column zwraca indeks pierwszej kolumny o podanej nazwie (bez wielkości liter, po trim).
// Nagłówki mogą się powtarzać, wygrywa pierwszy.
func (t *Table) Column(name string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return -1, false
	}
	for i, h := range t.Header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, true
		}
	}
	return -1, false
}

// newTable buduje tabelę z surowych rekordów: pomija puste wiersze,
// pierwszy niepusty to nagłówek, reszta dociągana/przycinana do jego szerokości.
func newTable(records [][]string) (*Table, error) {
	var header []string
	rows := make([][]string, 0, len(records))

	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		if header == nil {
			header = trimCells(rec)
			if len(header) > 0 {
				header[0] = strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff"))
			}
			continue
		}
		rows = append(rows, fit(trimCells(rec), len(header)))
	}

	if header == nil {
		return nil, ErrNoUsableRows
	}
	return &Table{Header: header, Rows: rows}, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")) != "" {
			return false
		}
	}
	return true
}

func trimCells(rec []string) []string {
	out := make([]string, len(rec))
	for i, c := range rec {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func fit(rec []string, n int) []string {
	if len(rec) == n {
		return rec
	}
	if len(rec) > n {
		return rec[:n]
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}
