package importer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bartek5186/cennik/internal/db"
	"github.com/bartek5186/cennik/internal/db/dbtest"
)

type fixture struct {
	h    *db.Handle
	svc  *Service
	sup  db.Supplier
	prod db.Product
}

func newFixture(t *testing.T, h *db.Handle, opts Options) *fixture {
	t.Helper()
	f := &fixture{h: h, svc: New(h.DB, zerolog.Nop(), opts)}
	f.sup = dbtest.Supplier(t, h, "Hurtownia Bolt", "10", nil)
	f.prod = dbtest.Product(t, h, "Śruba M6", nil)
	return f
}

func (f *fixture) assoc(t *testing.T, sku string, cost int64, costType string, units *int, active bool) db.ProductSupplier {
	t.Helper()
	return dbtest.Association(t, f.h, db.ProductSupplier{
		ProductID:    f.prod.ID,
		SupplierID:   f.sup.ID,
		SupplierSKU:  sku,
		SupplierCost: cost,
		CostType:     costType,
		UnitsPerPack: units,
		UnitCost:     cost,
		Active:       active,
	})
}

func (f *fixture) stageText(t *testing.T, text string, fileDiscount string) *StageResult {
	t.Helper()
	res, err := f.svc.Stage(context.Background(), StageRequest{
		SupplierID:   f.sup.ID,
		Text:         text,
		FileDiscount: decimal.RequireFromString(fileDiscount),
	})
	require.NoError(t, err)
	return res
}

// countWrites liczy instrukcje INSERT/UPDATE/DELETE i surowe Exec do końca testu.
func countWrites(t *testing.T, gdb *gorm.DB) *int {
	t.Helper()
	n := new(int)
	inc := func(*gorm.DB) { *n++ }
	cb := gdb.Callback()
	require.NoError(t, cb.Create().Before("gorm:create").Register("test:count_create", inc))
	require.NoError(t, cb.Update().Before("gorm:update").Register("test:count_update", inc))
	require.NoError(t, cb.Delete().Before("gorm:delete").Register("test:count_delete", inc))
	require.NoError(t, cb.Raw().Before("gorm:raw").Register("test:count_raw", inc))
	t.Cleanup(func() {
		_ = cb.Create().Remove("test:count_create")
		_ = cb.Update().Remove("test:count_update")
		_ = cb.Delete().Remove("test:count_delete")
		_ = cb.Raw().Remove("test:count_raw")
	})
	return n
}

func (f *fixture) reload(t *testing.T, id uint) db.ProductSupplier {
	t.Helper()
	var ps db.ProductSupplier
	require.NoError(t, f.h.DB.Take(&ps, id).Error)
	return ps
}

func (f *fixture) count(t *testing.T, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := f.h.DB.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func uintPtr(v uint) *uint { return &v }

var std = Mapping{SKU: "SKU", Price: "Cena", CostType: "Typ", UnitsPerPack: "Szt"}
