package table

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bartek5186/cennik/internal/detect"
)

// Parse: wejście dla plików o już rozpoznanym formacie.
func Parse(data []byte, f detect.Format, opts Options) (*Result, error) {
	if err := f.Check(); err != nil {
		return nil, err
	}
	p, ok := Lookup(f)
	if !ok {
		// np. .xls bez biblioteki do starego formatu Excela
		return nil, fmt.Errorf("%w: %s (obsługiwane: %s)", detect.ErrUnsupportedFormat, f, supported())
	}
	return p(data, opts.withDefaults())
}

func supported() string {
	fs := Formats()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// ParseFile: ścieżka pliku o rozpoznanym formacie (format z detect.Detect).
func ParseFile(path string, f detect.Format, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, f, opts)
}

// ParseText: wklejony tekst, opcjonalnie z wymuszonym separatorem.
func ParseText(text string, opts Options) (*Result, error) {
	return parseDelimited([]byte(text), opts.withDefaults())
}
