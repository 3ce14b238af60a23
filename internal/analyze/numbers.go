package analyze

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarks = strings.NewReplacer(
	"zł", "", "ZŁ", "", "Zł", "", "PLN", "", "pln", "", "EUR", "", "eur", "", "€", "", "$", "",
	" ", "", "\u00a0", "", "\u202f", "", "'", "",
)

// ParseDecimal czyta cenę w zapisie "z życia": 1 234,50 / 1.234,50 / 1,234.50 / 12.5 zł.
// Ostatni z separatorów ',' '.' jest dziesiętny, pozostałe to grupowanie tysięcy.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = currencyMarks.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseInt: liczba całkowita; "6,0" i "6.00" też przechodzą
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	d, ok := ParseDecimal(s)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
