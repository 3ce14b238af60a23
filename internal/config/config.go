// internal/config/config.go
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Główny config aplikacji
type Config struct {
	Database DatabaseConfig `json:"database"`
	Log      LogConfig      `json:"log"`
	HTTP     HTTPConfig     `json:"http"`
	Import   ImportConfig   `json:"import"`

	// dodatkowe sekcje (np. przyszłe źródła cenników) -> surowy JSON
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

type DatabaseConfig struct {
	Driver string `json:"driver" validate:"required,oneof=sqlite sqlite3 postgres mysql"`
	// dla sqlite: ścieżka pliku (względna => katalog aplikacji); dla postgres/mysql: DSN
	DSN    string `json:"dsn"`
	LogSQL bool   `json:"log_sql"`
}

type LogConfig struct {
	File       string `json:"file"`
	Console    bool   `json:"console"`
	Level      string `json:"level" validate:"omitempty,oneof=debug info warn warning error"`
	MaxSizeMB  int    `json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `json:"max_age_days" validate:"gte=0"`
}

type HTTPConfig struct {
	Addr        string `json:"addr" validate:"required"`
	MaxUploadMB int    `json:"max_upload_mb" validate:"gte=1,lte=512"`
}

type ImportConfig struct {
	DefaultDelimiter string  `json:"default_delimiter" validate:"required"`
	SampleLines      int     `json:"sample_lines" validate:"gte=1,lte=1000"`
	AnalyzeSample    int     `json:"analyze_sample" validate:"gte=1,lte=10000"`
	KindThreshold    float64 `json:"kind_threshold" validate:"gt=0,lte=1"`
	FallbackCharset  string  `json:"fallback_charset" validate:"required"`
	CaseSensitiveSKU bool    `json:"case_sensitive_sku"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "cennik.db",
		},
		Log: LogConfig{
			File:       "app.log",
			Console:    true,
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		HTTP: HTTPConfig{
			Addr:        "127.0.0.1:8088",
			MaxUploadMB: 20,
		},
		Import: ImportConfig{
			DefaultDelimiter: ";",
			SampleLines:      10,
			AnalyzeSample:    50,
			KindThreshold:    0.8,
			FallbackCharset:  "windows-1250",
		},
	}
}

func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("błąd otwierania configa: %w", err)
	}
	defer f.Close()

	// brakujące pola dostają wartości domyślne
	cfg := Default()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	if cfg.Extra == nil {
		cfg.Extra = map[string]json.RawMessage{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// Save zapisuje tylko poprawny config; plik tymczasowy + rename,
// więc przerwany zapis nie zostawia połowy pliku.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	_ = os.MkdirAll(dir, 0o755)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("błąd zapisu configa: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("niepoprawny config: %w", err)
	}
	// separatory zawierają znaki specjalne dla tagów validatora (",", "|")
	if c.Import.Delimiter() == 0 {
		return fmt.Errorf("niepoprawny config: nieznany separator %q", c.Import.DefaultDelimiter)
	}
	return nil
}

// Helper do odczytu dodatkowej sekcji do struktury docelowej
func (c *Config) UnmarshalSection(name string, v any) error {
	raw, ok := c.Extra[name]
	if !ok {
		return fmt.Errorf("brak sekcji %q w configu", name)
	}
	return json.Unmarshal(raw, v)
}

// Delimiter zwraca domyślny separator jako rune ("tab" => '\t').
func (ic ImportConfig) Delimiter() rune {
	return DelimiterRune(ic.DefaultDelimiter)
}

// DelimiterRune tłumaczy nazwę separatora z configa/formularza na rune; 0 = brak.
func DelimiterRune(s string) rune {
	switch s {
	case "tab", "\\t", "\t":
		return '\t'
	case ";", "semicolon":
		return ';'
	case ",", "comma":
		return ','
	case "|", "pipe":
		return '|'
	default:
		return 0
	}
}

// ResolvePath - ścieżki względne w configu liczone od katalogu aplikacji.
func ResolvePath(appDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(appDir, p)
}
