// Package dbtest otwiera zmigrowaną bazę sqlite dla testów i zakłada dane startowe.
package dbtest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bartek5186/cennik/internal/db"
)

// Open: baza w pamięci, osobna dla każdego testu.
func Open(t testing.TB) *db.Handle {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	h, err := db.Open(db.Options{Driver: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)})
	require.NoError(t, err)
	sqlDB, err := h.DB.DB()
	require.NoError(t, err)
	// jedna baza w pamięci = jedno połączenie, inaczej "database table is locked"
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, h.Migrate())
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// OpenFile: plik w katalogu tymczasowym; potrzebne, gdy test używa kilku połączeń naraz.
func OpenFile(t testing.TB) *db.Handle {
	t.Helper()
	h, err := db.Open(db.Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	require.NoError(t, h.Migrate())
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func Supplier(t testing.TB, h *db.Handle, name string, discount string, defaultUnits *int) db.Supplier {
	t.Helper()
	s := db.Supplier{
		Name:                name,
		DiscountPercent:     decimal.RequireFromString(discount),
		DefaultUnitsPerPack: defaultUnits,
		Active:              true,
	}
	require.NoError(t, h.DB.Create(&s).Error)
	return s
}

func Product(t testing.TB, h *db.Handle, name string, units *int) db.Product {
	t.Helper()
	p := db.Product{Name: name, UnitsPerPack: units}
	require.NoError(t, h.DB.Create(&p).Error)
	return p
}

func Association(t testing.TB, h *db.Handle, ps db.ProductSupplier) db.ProductSupplier {
	t.Helper()
	if ps.CostType == "" {
		ps.CostType = db.CostTypeUnit
	}
	require.NoError(t, h.DB.Create(&ps).Error)
	if !ps.Active {
		// gorm pomija zera przy Create, więc flagę ustawiamy jawnie
		require.NoError(t, h.DB.Model(&db.ProductSupplier{}).Where("id = ?", ps.ID).Update("active", false).Error)
	}
	return ps
}

func IntPtr(v int) *int { return &v }
