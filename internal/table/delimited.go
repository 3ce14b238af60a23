package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/bartek5186/cennik/internal/detect"
)

// kolejność = priorytet przy remisie
var candidateDelimiters = []rune{'\t', ';', ',', '|'}

func init() {
	Register(detect.CSV, parseDelimited)
	Register(detect.TXT, parseDelimited)
}

func parseDelimited(data []byte, opts Options) (*Result, error) {
	text, cs, err := decodeText(data, opts.FallbackCharset)
	if err != nil {
		return nil, err
	}
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	if strings.TrimSpace(text) == "" {
		return nil, ErrNoUsableRows
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(text, opts.SampleLines, opts.DefaultDelimiter)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	// bez TrimLeadingSpace: przy tabulatorze zjadałby puste pola

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("błąd parsowania tekstu (separator %q): %w", delim, err)
	}

	tbl, err := newTable(records)
	if err != nil {
		return nil, err
	}
	return &Result{Table: tbl, Delimiter: &delim, Charset: cs}, nil
}

// DetectDelimiter wybiera separator, który daje najbardziej powtarzalną liczbę
// kolumn (>= 2) w pierwszych sampleLines niepustych liniach.
func DetectDelimiter(text string, sampleLines int, def rune) rune {
	lines := sample(text, sampleLines)
	if len(lines) == 0 {
		return def
	}

	best, bestScore := def, 0
	for _, d := range candidateDelimiters {
		cols, score := consistency(lines, d)
		if cols < 2 {
			continue
		}
		// ścisłe ">", przy remisie zostaje wcześniejszy kandydat
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func sample(text string, n int) []string {
	out := make([]string, 0, n)
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, ln)
		if len(out) >= n {
			break
		}
	}
	return out
}

// consistency zwraca modalną liczbę pól i w ilu liniach wystąpiła.
func consistency(lines []string, d rune) (int, int) {
	freq := map[int]int{}
	for _, ln := range lines {
		freq[fieldCount(ln, d)]++
	}
	mode, n := 0, 0
	for cols, cnt := range freq {
		if cnt > n || (cnt == n && cols > mode) {
			mode, n = cols, cnt
		}
	}
	return mode, n
}

func fieldCount(line string, d rune) int {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = d
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return strings.Count(line, string(d)) + 1
	}
	return len(rec)
}

// decodeText: UTF-8 przechodzi bez zmian, reszta przez fallback (np. windows-1250 z PC-Marketu).
func decodeText(data []byte, fallback string) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	label := normalizeCharset(fallback)
	rd, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("nieznane kodowanie %q: %w", fallback, err)
	}
	out, err := io.ReadAll(rd)
	if err != nil {
		return "", "", err
	}
	return string(out), label, nil
}

// normalizeCharset mapuje nietypowe etykiety na standardowe nazwy rozpoznawane przez charset.NewReaderLabel
func normalizeCharset(cs string) string {
	c := strings.TrimSpace(strings.ToLower(cs))
	switch c {
	case "latin ii", "latin-2", "latin2", "iso8859-2", "iso_8859-2":
		return "iso-8859-2"
	case "cp1250", "windows1250", "win-1250":
		return "windows-1250"
	default:
		return c
	}
}
