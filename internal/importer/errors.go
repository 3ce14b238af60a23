package importer

import (
	"errors"

	"github.com/bartek5186/cennik/internal/analyze"
	"github.com/bartek5186/cennik/internal/costcalc"
	"github.com/bartek5186/cennik/internal/detect"
	"github.com/bartek5186/cennik/internal/table"
)

// błędy wejścia (nic nie zostaje zapisane)
var (
	ErrInvalidSupplier   = errors.New("nieznany albo nieaktywny dostawca")
	ErrEmptyInput        = errors.New("pusty plik albo tekst")
	ErrUnsupportedFormat = detect.ErrUnsupportedFormat
	ErrNotSupportedYet   = detect.ErrNotSupportedYet
	ErrNoUsableRows      = table.ErrNoUsableRows
	ErrUnreadableFile    = table.ErrUnreadableFile
	ErrNoDataRows        = analyze.ErrNoDataRows
	ErrInvalidDiscount   = costcalc.ErrInvalidDiscount
)

// błędy mapowania (przed zapisem jakiegokolwiek wiersza)
var (
	ErrUnknownColumn   = errors.New("nieznana kolumna w mapowaniu")
	ErrMappingRequired = errors.New("niepełne mapowanie kolumn")
)

// stan runu
var (
	ErrRunNotFound  = errors.New("import nie istnieje")
	ErrRunApplied   = errors.New("import został już zatwierdzony")
	ErrRunNotMapped = errors.New("import nie ma potwierdzonego mapowania")
)

// zatwierdzanie (pełny rollback, run do ponowienia)
var (
	ErrApplyFailed     = errors.New("zatwierdzenie importu nie powiodło się")
	ErrConcurrentApply = errors.New("import zatwierdzany równolegle")
)

// kody do zgłoszeń, stabilne między wersjami
var codes = []struct {
	err  error
	code string
}{
	// ErrConcurrentApply przed ErrApplyFailed: bywa opakowany w oba
	{ErrConcurrentApply, "APP002"},
	{ErrApplyFailed, "APP001"},
	{ErrInvalidSupplier, "IMP001"},
	{ErrEmptyInput, "IMP002"},
	{ErrUnsupportedFormat, "IMP003"},
	{ErrNotSupportedYet, "IMP004"},
	{ErrNoUsableRows, "IMP005"},
	{ErrNoDataRows, "IMP006"},
	{ErrInvalidDiscount, "IMP007"},
	{ErrUnreadableFile, "IMP008"},
	{ErrUnknownColumn, "MAP001"},
	{ErrMappingRequired, "MAP002"},
	{ErrRunNotFound, "RUN001"},
	{ErrRunApplied, "RUN002"},
	{ErrRunNotMapped, "RUN003"},
}

// Code zwraca kod błędu albo "" dla błędów spoza listy.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// IsInputError: błąd po stronie danych od operatora (400/422 w API)
func IsInputError(err error) bool {
	for _, e := range []error{
		ErrInvalidSupplier, ErrEmptyInput, ErrUnsupportedFormat, ErrNotSupportedYet,
		ErrNoUsableRows, ErrNoDataRows, ErrInvalidDiscount, ErrUnreadableFile,
		ErrUnknownColumn, ErrMappingRequired,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
