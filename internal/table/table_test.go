package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bartek5186/cennik/internal/detect"
)

func TestDelimiterRoundTrip(t *testing.T) {
	rows := [][]string{
		{"SKU", "Name", "Price", "Type"},
		{"A-100", "Śruba M6", "10.50", "UNIT"},
		{"B-200", "Nakrętka", "3", "PACK"},
		{"c-300", "Podkładka", "0.99", ""},
	}
	for _, d := range []rune{'\t', ';', ',', '|'} {
		t.Run(string(d), func(t *testing.T) {
			var sb strings.Builder
			for _, r := range rows {
				sb.WriteString(strings.Join(r, string(d)))
				sb.WriteString("\n")
			}

			res, err := ParseText(sb.String(), Options{})
			require.NoError(t, err)
			require.NotNil(t, res.Delimiter)
			assert.Equal(t, d, *res.Delimiter)
			assert.Equal(t, rows[0], res.Table.Header)
			assert.Equal(t, rows[1:], res.Table.Rows)
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	t.Run("semicolon with decimal commas", func(t *testing.T) {
		text := "sku;cena\nA;12,50\nB;13,00\nC;7,10\n"
		assert.Equal(t, ';', DetectDelimiter(text, 10, ','))
	})

	t.Run("tie prefers tab over semicolon", func(t *testing.T) {
		text := "a\tb;c\nd\te;f\n"
		assert.Equal(t, '\t', DetectDelimiter(text, 10, ','))
	})

	t.Run("tie prefers semicolon over comma", func(t *testing.T) {
		text := "a;b,c\nd;e,f\n"
		assert.Equal(t, ';', DetectDelimiter(text, 10, '|'))
	})

	t.Run("single column falls back to default", func(t *testing.T) {
		assert.Equal(t, ';', DetectDelimiter("sku\nA\nB\n", 10, ';'))
	})

	t.Run("only sampled lines count", func(t *testing.T) {
		text := "a|b\nc|d\ne,f,g\nh,i,j\nk,l,m\n"
		assert.Equal(t, '|', DetectDelimiter(text, 2, ';'))
	})

	t.Run("quoted delimiters are not counted", func(t *testing.T) {
		text := "sku,name\nA,\"Śruba; ocynk; M6\"\nB,\"Nakrętka; M6\"\n"
		assert.Equal(t, ',', DetectDelimiter(text, 10, ';'))
	})
}

func TestParseText(t *testing.T) {
	t.Run("bom, blank lines and padding", func(t *testing.T) {
		text := "\ufeffsku;price;type\r\n\r\nA;1,5\r\n;\r\n \r\nB;2;PACK;extra\r\n"
		res, err := ParseText(text, Options{})
		require.NoError(t, err)

		assert.Equal(t, []string{"sku", "price", "type"}, res.Table.Header)
		assert.Equal(t, [][]string{
			{"A", "1,5", ""},
			{"B", "2", "PACK"},
		}, res.Table.Rows)
		assert.Equal(t, "utf-8", res.Charset)
	})

	t.Run("forced delimiter wins", func(t *testing.T) {
		res, err := ParseText("a,b;c\n1,2;3\n", Options{Delimiter: ','})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b;c"}, res.Table.Header)
		assert.Equal(t, ',', *res.Delimiter)
	})

	t.Run("empty tab fields are kept", func(t *testing.T) {
		res, err := ParseText("a\tb\tc\n1\t\t3\n", Options{})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"1", "", "3"}}, res.Table.Rows)
	})

	t.Run("duplicate headers allowed", func(t *testing.T) {
		res, err := ParseText("cena;cena\n1;2\n", Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"cena", "cena"}, res.Table.Header)
		idx, ok := res.Table.Column(" CENA ")
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})

	t.Run("header only is not an error here", func(t *testing.T) {
		res, err := ParseText("sku;price\n", Options{})
		require.NoError(t, err)
		assert.Empty(t, res.Table.Rows)
	})

	t.Run("nothing usable", func(t *testing.T) {
		for _, in := range []string{"", "\n\n", " \n;;\n", "\ufeff"} {
			_, err := ParseText(in, Options{})
			assert.ErrorIs(t, err, ErrNoUsableRows, "%q", in)
		}
	})

	t.Run("windows-1250 fallback", func(t *testing.T) {
		// "Śruba" w cp1250: 0x8C = Ś
		data := []byte("sku;nazwa\nA;\x8Cruba\n")
		res, err := Parse(data, detect.CSV, Options{})
		require.NoError(t, err)
		assert.Equal(t, "Śruba", res.Table.Rows[0][1])
		assert.Equal(t, "windows-1250", res.Charset)
	})
}

func TestParseFormats(t *testing.T) {
	t.Run("pdf not supported yet", func(t *testing.T) {
		_, err := Parse([]byte("%PDF-1.4"), detect.PDF, Options{})
		assert.ErrorIs(t, err, detect.ErrNotSupportedYet)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Parse([]byte{0}, detect.Unknown, Options{})
		assert.ErrorIs(t, err, detect.ErrUnsupportedFormat)
	})

	t.Run("xls has no parser", func(t *testing.T) {
		_, ok := Lookup(detect.XLS)
		assert.False(t, ok)
		_, err := Parse([]byte{0xD0, 0xCF}, detect.XLS, Options{})
		assert.ErrorIs(t, err, detect.ErrUnsupportedFormat)
		assert.Contains(t, err.Error(), "csv, txt, xlsx")
	})

	t.Run("registered formats", func(t *testing.T) {
		assert.ElementsMatch(t, []detect.Format{detect.CSV, detect.TXT, detect.XLSX}, Formats())
	})
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"SKU", "Cena", "Opak", "Data"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"000123", 12.3, 6, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"B-2", 1000, nil, nil}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := Parse(buf.Bytes(), detect.XLSX, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Delimiter)
	assert.Equal(t, []string{"SKU", "Cena", "Opak", "Data"}, res.Table.Header)
	require.Len(t, res.Table.Rows, 2)
	assert.Equal(t, []string{"000123", "12.3", "6", "2024-03-01"}, res.Table.Rows[0])
	assert.Equal(t, []string{"B-2", "1000", "", ""}, res.Table.Rows[1])
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cennik.csv")
	require.NoError(t, os.WriteFile(path, []byte("SKU,Cena\nA-1,10\nB-2,20\n"), 0o644))

	res, err := ParseFile(path, detect.CSV, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Delimiter)
	assert.Equal(t, ',', *res.Delimiter)
	assert.Equal(t, []string{"SKU", "Cena"}, res.Table.Header)
	assert.Len(t, res.Table.Rows, 2)

	_, err = ParseFile(filepath.Join(dir, "brak.csv"), detect.CSV, Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ParseFile(path, detect.PDF, Options{})
	assert.ErrorIs(t, err, detect.ErrNotSupportedYet)
}

func TestParseXLSXBroken(t *testing.T) {
	_, err := Parse([]byte("PK\x03\x04garbage"), detect.XLSX, Options{})
	assert.ErrorIs(t, err, ErrUnreadableFile)
}
