package table

import (
	"sync"

	"github.com/bartek5186/cennik/internal/detect"
)

type Options struct {
	Delimiter        rune   // wymuszony separator; 0 = wykryj
	DefaultDelimiter rune   // gdy wykrywanie nic nie da
	SampleLines      int    // ile niepustych linii brać do wykrywania separatora
	FallbackCharset  string // kodowanie dla danych, które nie są poprawnym UTF-8
}

func (o Options) withDefaults() Options {
	if o.DefaultDelimiter == 0 {
		o.DefaultDelimiter = ';'
	}
	if o.SampleLines <= 0 {
		o.SampleLines = 10
	}
	if o.FallbackCharset == "" {
		o.FallbackCharset = "windows-1250"
	}
	return o
}

// Parser zamienia bajty w danym formacie na tabelę.
type Parser func(data []byte, opts Options) (*Result, error)

var (
	regMu    sync.RWMutex
	registry = map[detect.Format]Parser{}
)

func Register(f detect.Format, p Parser) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[f] = p
}

func Lookup(f detect.Format) (Parser, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	p, ok := registry[f]
	return p, ok
}

// Formats: lista zarejestrowanych formatów (np. do komunikatu o błędzie)
func Formats() []detect.Format {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]detect.Format, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
