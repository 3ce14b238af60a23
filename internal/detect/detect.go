// Package detect rozpoznaje format pliku z cennikiem.
//
// Kolejność: sygnatury binarne (zip, OLE2, pdf) > rozszerzenie > MIME od klienta > treść tekstowa.
package detect

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Format string

const (
	CSV     Format = "csv"
	TXT     Format = "txt"
	XLSX    Format = "xlsx"
	XLS     Format = "xls"
	PDF     Format = "pdf"
	Unknown Format = "unknown"
)

var (
	ErrUnsupportedFormat = errors.New("nieobsługiwany format pliku")
	ErrNotSupportedYet   = errors.New("format rozpoznany, ale jeszcze nieobsługiwany")
)

// IsText: formaty parsowane jako tekst z separatorem
func (f Format) IsText() bool { return f == CSV || f == TXT }

// Check zamienia wynik detekcji na błąd dla formatów, których nie przetwarzamy.
func (f Format) Check() error {
	switch f {
	case PDF:
		return ErrNotSupportedYet
	case Unknown, "":
		return ErrUnsupportedFormat
	}
	return nil
}

func Detect(data []byte, filename, mimeHint string) Format {
	if len(data) == 0 {
		return Unknown
	}

	mt := mimetype.Detect(data)
	if f := bySignature(mt); f != Unknown {
		return f
	}

	claimed := byExtension(filename)
	if claimed == Unknown {
		claimed = byMIME(mimeHint)
	}

	looksText := hasAncestor(mt, "text/plain")
	switch claimed {
	case CSV, TXT:
		if looksText {
			return claimed
		}
		// binarne śmieci z rozszerzeniem .csv
		return Unknown
	case XLSX, XLS, PDF:
		// nazwa mówi "arkusz", treść mówi "tekst", wygrywa treść
		if looksText {
			return TXT
		}
		return claimed
	}

	if looksText {
		return TXT
	}
	return Unknown
}

func bySignature(mt *mimetype.MIME) Format {
	switch {
	case hasAncestor(mt, "application/zip"):
		return XLSX
	case hasAncestor(mt, "application/x-ole-storage"):
		return XLS
	case hasAncestor(mt, "application/pdf"):
		return PDF
	}
	return Unknown
}

func hasAncestor(mt *mimetype.MIME, want string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

func byExtension(name string) Format {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv":
		return CSV
	case ".txt", ".tsv", ".tab":
		return TXT
	case ".xlsx", ".xlsm":
		return XLSX
	case ".xls":
		return XLS
	case ".pdf":
		return PDF
	}
	return Unknown
}

func byMIME(hint string) Format {
	h := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.IndexByte(h, ';'); i >= 0 {
		h = strings.TrimSpace(h[:i])
	}
	switch h {
	case "text/csv", "application/csv", "text/x-csv":
		return CSV
	case "text/plain", "text/tab-separated-values":
		return TXT
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return XLSX
	case "application/vnd.ms-excel", "application/msexcel":
		// przeglądarki wysyłają to także dla .csv, rozstrzyga treść w Detect
		return XLS
	case "application/pdf":
		return PDF
	}
	return Unknown
}
