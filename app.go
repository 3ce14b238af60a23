package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bartek5186/cennik/internal/analyze"
	conf "github.com/bartek5186/cennik/internal/config"
	"github.com/bartek5186/cennik/internal/db"
	"github.com/bartek5186/cennik/internal/importer"
	"github.com/bartek5186/cennik/internal/logs"
	"github.com/bartek5186/cennik/internal/table"
)

// app: wszystko, czego potrzebuje komenda: config, logger, baza, serwis
type app struct {
	dir     string
	cfgPath string
	cfg     *conf.Config
	log     zerolog.Logger
	dbh     *db.Handle
	svc     *importer.Service
}

func openApp(rf *rootFlags) (*app, error) {
	dir := rf.dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "cennik")
	}
	_ = os.MkdirAll(dir, 0o755)

	cfgPath := rf.cfgPath
	if cfgPath == "" {
		cfgPath = filepath.Join(dir, "config.json")
	}
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logs.New(logs.Options{
		FilePath:   conf.ResolvePath(dir, cfg.Log.File),
		Console:    cfg.Log.Console,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if firstRun {
		log.Info().Str("path", cfgPath).Msg("Utworzono domyślną konfigurację")
	}

	dbh, err := db.OpenAt(dir, db.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		LogSQL: cfg.Database.LogSQL,
	})
	if err != nil {
		log.Error().Err(err).Msg("DB open error")
		return nil, err
	}
	if err := dbh.Migrate(); err != nil {
		_ = dbh.Close()
		log.Error().Err(err).Msg("DB migrate error")
		return nil, err
	}
	dbh.LogStats(log)

	return &app{
		dir:     dir,
		cfgPath: cfgPath,
		cfg:     cfg,
		log:     log,
		dbh:     dbh,
		svc:     importer.New(dbh.DB, log, importerOptions(cfg)),
	}, nil
}

func (a *app) Close() {
	if err := a.dbh.Close(); err != nil {
		a.log.Warn().Err(err).Msg("DB close")
	}
}

func importerOptions(cfg *conf.Config) importer.Options {
	return importer.Options{
		Table: table.Options{
			DefaultDelimiter: cfg.Import.Delimiter(),
			SampleLines:      cfg.Import.SampleLines,
			FallbackCharset:  cfg.Import.FallbackCharset,
		},
		Analyze: analyze.Options{
			Sample:    cfg.Import.AnalyzeSample,
			Threshold: cfg.Import.KindThreshold,
		},
		CaseSensitiveSKU: cfg.Import.CaseSensitiveSKU,
	}
}
