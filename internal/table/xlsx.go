package table

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bartek5186/cennik/internal/detect"
)

func init() {
	Register(detect.XLSX, parseXLSX)
}

// parseXLSX czyta pierwszy arkusz. Wartości surowe (bez formatowania z Excela),
// liczby w zapisie z kropką, daty jako 2006-01-02, niezależnie od locale.
func parseXLSX(data []byte, _ Options) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: XLSX: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoUsableRows
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: arkusz %q: %v", ErrUnreadableFile, sheet, err)
	}

	dates := dateStyleCache{f: f, known: map[int]bool{}}
	for ri, row := range rows {
		for ci, cell := range row {
			row[ci] = dates.stringify(sheet, ci, ri, cell)
		}
	}

	tbl, err := newTable(rows)
	if err != nil {
		return nil, err
	}
	return &Result{Table: tbl, Charset: "utf-8"}, nil
}

type dateStyleCache struct {
	f     *excelize.File
	known map[int]bool // styleID -> czy to format daty
}

func (c *dateStyleCache) stringify(sheet string, col, row int, raw string) string {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raw
	}
	// tekst wyglądający jak liczba (np. SKU "000123") zostaje bez zmian
	if typ, err := c.f.GetCellType(sheet, cell); err == nil {
		switch typ {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
			return raw
		}
	}

	if c.isDate(sheet, cell) {
		if t, err := excelize.ExcelDateToTime(v, false); err == nil {
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
				return t.Format("2006-01-02")
			}
			return t.Format("2006-01-02T15:04:05")
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *dateStyleCache) isDate(sheet, cell string) bool {
	styleID, err := c.f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	if v, ok := c.known[styleID]; ok {
		return v
	}
	style, err := c.f.GetStyle(styleID)
	isDate := err == nil && style != nil && isDateFormat(style)
	c.known[styleID] = isDate
	return isDate
}

// wbudowane formaty daty/czasu Excela: 14-22, 45-47
func isDateFormat(s *excelize.Style) bool {
	switch {
	case s.NumFmt >= 14 && s.NumFmt <= 22, s.NumFmt >= 45 && s.NumFmt <= 47:
		return true
	}
	if s.CustomNumFmt != nil {
		fmtStr := strings.ToLower(*s.CustomNumFmt)
		return strings.Contains(fmtStr, "yy") || strings.Contains(fmtStr, "dd") || strings.Contains(fmtStr, "mmm")
	}
	return false
}
