package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/bartek5186/cennik/internal/config"
	"github.com/bartek5186/cennik/internal/db"
	"github.com/bartek5186/cennik/internal/db/dbtest"
	"github.com/bartek5186/cennik/internal/importer"
)

func TestImporterOptions(t *testing.T) {
	cfg := conf.Default()
	cfg.Import.DefaultDelimiter = "tab"
	cfg.Import.CaseSensitiveSKU = true

	o := importerOptions(cfg)
	assert.Equal(t, '\t', o.Table.DefaultDelimiter)
	assert.Equal(t, 10, o.Table.SampleLines)
	assert.Equal(t, "windows-1250", o.Table.FallbackCharset)
	assert.Equal(t, 50, o.Analyze.Sample)
	assert.Equal(t, 0.8, o.Analyze.Threshold)
	assert.True(t, o.CaseSensitiveSKU)
}

func TestOpenAppCreatesConfigAndDB(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	cfg := conf.Default()
	cfg.Log.Console = false
	require.NoError(t, conf.Save(cfgPath, cfg))

	a, err := openApp(&rootFlags{dir: dir})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, cfgPath, a.cfgPath)
	_, err = os.Stat(filepath.Join(dir, "cennik.db"))
	assert.NoError(t, err)
}

func TestRepl(t *testing.T) {
	h := dbtest.Open(t)
	sup := dbtest.Supplier(t, h, "Hurtownia", "0", nil)
	p := dbtest.Product(t, h, "Śruba", nil)
	ps := dbtest.Association(t, h, db.ProductSupplier{
		ProductID: p.ID, SupplierID: sup.ID, SupplierSKU: "ABC-1", Active: true,
	})

	file := filepath.Join(t.TempDir(), "cennik.csv")
	require.NoError(t, os.WriteFile(file, []byte("Kod;Cena\nABC-1;12,40\nZZZ-NOTFOUND;1\n"), 0o644))

	a := &app{dir: "/tmp/x", cfgPath: "/tmp/x/config.json", log: zerolog.Nop(),
		svc: importer.New(h.DB, zerolog.Nop(), importer.Options{})}

	// najpierw stage, token wyciągamy z wyjścia
	var out bytes.Buffer
	in := strings.NewReader("stage " + strconv.Itoa(int(sup.ID)) + " " + file + "\nquit\n")
	require.NoError(t, runRepl(context.Background(), a, nil, in, &out))
	m := regexp.MustCompile(`Token: (\S+)`).FindStringSubmatch(out.String())
	require.Len(t, m, 2, out.String())
	token := m[1]

	out.Reset()
	script := strings.Join([]string{
		"",
		"map " + token,
		"rows " + token,
		"apply " + token,
		"apply " + token,
		"show",
		"bogus",
		"paths",
		"exit",
	}, "\n")
	require.NoError(t, runRepl(context.Background(), a, nil, strings.NewReader(script), &out))

	s := out.String()
	assert.Contains(t, s, "Wiersze: 2, dopasowane: 1, niedopasowane: 1")
	assert.Contains(t, s, "ZZZ-NOTFOUND")
	assert.Contains(t, s, "Zatwierdzono: wiersze 1, powiązania 1, wpisy historii 1")
	assert.Contains(t, s, "Run był już zatwierdzony")
	assert.Contains(t, s, "podaj token runu")
	assert.Contains(t, s, "Nieznana komenda.")
	assert.Contains(t, s, "Config: /tmp/x/config.json")

	var got db.ProductSupplier
	require.NoError(t, h.DB.Take(&got, ps.ID).Error)
	assert.Equal(t, int64(12), got.SupplierCost)
}

func TestReplStageErrors(t *testing.T) {
	h := dbtest.Open(t)
	a := &app{log: zerolog.Nop(), svc: importer.New(h.DB, zerolog.Nop(), importer.Options{})}

	var out bytes.Buffer
	in := strings.NewReader("stage x y\nstage 1\n")
	require.NoError(t, runRepl(context.Background(), a, nil, in, &out))
	assert.Contains(t, out.String(), "Błąd [IMP001]")
	assert.Contains(t, out.String(), "użycie: stage")
}
