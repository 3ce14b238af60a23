package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Handle struct {
	DB     *gorm.DB
	Driver string
	Path   string // DSN albo ścieżka pliku sqlite
}

type Options struct {
	Driver string // sqlite | sqlite3 | postgres | mysql
	DSN    string
	LogSQL bool
}

// OpenAt otwiera bazę względem katalogu aplikacji: względna ścieżka sqlite
// (albo jej brak => cennik.db) trafia do dir, DSN-y serwerowe bez zmian.
func OpenAt(dir string, opts Options) (*Handle, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite", "sqlite3":
		if opts.DSN == "" {
			opts.DSN = "cennik.db"
		}
		if !filepath.IsAbs(opts.DSN) && !strings.HasPrefix(opts.DSN, "file:") && !strings.Contains(opts.DSN, ":memory:") {
			opts.DSN = filepath.Join(dir, opts.DSN)
		}
	}
	return Open(opts)
}

func Open(opts Options) (*Handle, error) {
	var dial gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		// czysty Go (bez cgo), domyślny
		dial = sqlite.Open(sqliteDSN(opts.DSN))
	case "sqlite3":
		dial = cgosqlite.Open(sqliteDSN(opts.DSN))
	case "postgres":
		dial = postgres.Open(opts.DSN)
	case "mysql":
		dial = mysql.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("nieznany sterownik bazy %q", opts.Driver)
	}

	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if opts.LogSQL {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(dial, gcfg)
	if err != nil {
		return nil, err
	}
	return &Handle{DB: gdb, Driver: gdb.Dialector.Name(), Path: opts.DSN}, nil
}

func (h *Handle) Close() error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SupportsRowLocks: sqlite nie zna SELECT ... FOR UPDATE
func SupportsRowLocks(gdb *gorm.DB) bool {
	return gdb.Dialector.Name() != "sqlite"
}

func sqliteDSN(p string) string {
	if p == "" {
		return "cennik.db"
	}
	if !strings.HasPrefix(p, "file:") && !strings.Contains(p, ":memory:") {
		_ = os.MkdirAll(filepath.Dir(p), 0o755)
		// bez busy_timeout równoległe transakcje od razu dostają SQLITE_BUSY
		if !strings.Contains(p, "?") {
			p += "?_pragma=busy_timeout(5000)"
		}
	}
	return p
}

// LogStats: krótkie podsumowanie zawartości bazy po starcie
func (h *Handle) LogStats(log zerolog.Logger) {
	var runs, pending, assoc int64
	h.DB.Model(&ImportRun{}).Count(&runs)
	h.DB.Model(&ImportRun{}).Where("applied_at IS NULL").Count(&pending)
	h.DB.Model(&ProductSupplier{}).Where("active = ?", true).Count(&assoc)
	log.Info().
		Str("driver", h.Driver).
		Int64("runs", runs).
		Int64("runs_pending", pending).
		Int64("active_associations", assoc).
		Msg("DB ready")
}
