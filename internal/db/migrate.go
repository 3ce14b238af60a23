package db

import (
	"fmt"
)

// Migrate tworzy/aktualizuje schemat bazy.
// Kolejność:
//  1. AutoMigrate (tabele zewnętrzne + tabele importu)
//  2. upewnij się, że indeksy istnieją (na starszych bazach mogło ich nie być)
func (h *Handle) Migrate() error {
	gdb := h.DB

	if err := gdb.AutoMigrate(
		&Supplier{},
		&Product{},
		&ProductSupplier{},
		&ImportRun{},
		&ImportRow{},
		&CostHistoryEntry{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}

	if !gdb.Migrator().HasIndex(&ProductSupplier{}, "idx_ps_supplier_sku") {
		if err := gdb.Migrator().CreateIndex(&ProductSupplier{}, "idx_ps_supplier_sku"); err != nil {
			return fmt.Errorf("create index idx_ps_supplier_sku: %w", err)
		}
	}
	if !gdb.Migrator().HasIndex(&ImportRow{}, "uniq_import_row_line") {
		if err := gdb.Migrator().CreateIndex(&ImportRow{}, "uniq_import_row_line"); err != nil {
			return fmt.Errorf("create index uniq_import_row_line: %w", err)
		}
	}

	return nil
}
