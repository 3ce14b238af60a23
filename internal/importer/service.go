// Package importer prowadzi run importu cennika: staging, mapowanie,
// dopasowanie SKU i transakcyjne zatwierdzenie kosztów.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bartek5186/cennik/internal/analyze"
	"github.com/bartek5186/cennik/internal/costcalc"
	"github.com/bartek5186/cennik/internal/db"
	"github.com/bartek5186/cennik/internal/detect"
	"github.com/bartek5186/cennik/internal/table"
)

type Options struct {
	Table            table.Options
	Analyze          analyze.Options
	CaseSensitiveSKU bool
}

type Service struct {
	db    *gorm.DB
	log   zerolog.Logger
	opts  Options
	match matcher
	now   func() time.Time
}

func New(gdb *gorm.DB, log zerolog.Logger, opts Options) *Service {
	l := log.With().Str("component", "importer").Logger()
	return &Service{
		db:    gdb,
		log:   l,
		opts:  opts,
		match: matcher{log: l, caseSensitive: opts.CaseSensitiveSKU},
		now:   time.Now,
	}
}

func (s *Service) store(ctx context.Context) *RunStore {
	return NewRunStore(s.db.WithContext(ctx))
}

// StageRequest: albo plik (Data + Filename + MIME), albo wklejony Text.
type StageRequest struct {
	SupplierID   uint
	Filename     string
	MIME         string
	Data         []byte
	Text         string
	Delimiter    rune // tylko dla tekstu; 0 = wykryj
	FileDiscount decimal.Decimal
	ActorID      *uint
}

type StageResult struct {
	Token     string           `json:"token"`
	Format    detect.Format    `json:"format"`
	Delimiter string           `json:"delimiter,omitempty"`
	Charset   string           `json:"charset,omitempty"`
	Summary   *analyze.Summary `json:"summary"`
}

// Stage tworzy run z pliku albo tekstu. Przy błędzie nic nie jest zapisywane.
func (s *Service) Stage(ctx context.Context, req StageRequest) (*StageResult, error) {
	var sup db.Supplier
	if req.SupplierID == 0 {
		return nil, ErrInvalidSupplier
	}
	if err := s.db.WithContext(ctx).Take(&sup, req.SupplierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrInvalidSupplier, req.SupplierID)
		}
		return nil, err
	}
	if !sup.Active {
		return nil, fmt.Errorf("%w: id=%d", ErrInvalidSupplier, req.SupplierID)
	}
	if err := costcalc.ValidateDiscount(req.FileDiscount); err != nil {
		return nil, fmt.Errorf("%w: rabat z pliku %s", err, req.FileDiscount)
	}
	if err := costcalc.ValidateDiscount(sup.DiscountPercent); err != nil {
		return nil, fmt.Errorf("%w: rabat dostawcy %s", err, sup.DiscountPercent)
	}

	run := db.ImportRun{
		Token:                   uuid.NewString(),
		SupplierID:              sup.ID,
		SupplierDiscountPercent: sup.DiscountPercent,
		FileDiscountPercent:     req.FileDiscount,
		CreatedBy:               req.ActorID,
	}

	var (
		res *table.Result
		err error
	)
	topts := s.opts.Table
	if len(req.Data) > 0 {
		run.SourceKind = db.SourceFile
		run.Filename = req.Filename
		f := detect.Detect(req.Data, req.Filename, req.MIME)
		run.Format = string(f)
		res, err = table.Parse(req.Data, f, topts)
	} else {
		if strings.TrimSpace(req.Text) == "" {
			return nil, ErrEmptyInput
		}
		run.SourceKind = db.SourceText
		run.Format = string(detect.TXT)
		topts.Delimiter = req.Delimiter
		res, err = table.ParseText(req.Text, topts)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("file", req.Filename).Str("format", run.Format).Msg("stage: parse failed")
		return nil, err
	}

	sum, err := analyze.Analyze(res.Table, s.opts.Analyze)
	if err != nil {
		return nil, err
	}

	if res.Delimiter != nil {
		d := string(*res.Delimiter)
		run.Delimiter = &d
	}
	if run.TableJSON, err = json.Marshal(res.Table); err != nil {
		return nil, err
	}
	if run.AnalysisJSON, err = json.Marshal(sum); err != nil {
		return nil, err
	}
	run.TotalRows = sum.TotalRows

	if err := s.store(ctx).Create(&run); err != nil {
		return nil, fmt.Errorf("zapis runu: %w", err)
	}
	runsStaged.WithLabelValues(run.Format).Inc()

	s.log.Info().
		Str("run", run.Token).
		Uint("supplier_id", sup.ID).
		Str("source", run.SourceKind).
		Str("format", run.Format).
		Str("charset", res.Charset).
		Int("rows", run.TotalRows).
		Int("columns", len(sum.Headers)).
		Msg("run staged")

	return &StageResult{
		Token:     run.Token,
		Format:    detect.Format(run.Format),
		Delimiter: deref(run.Delimiter),
		Charset:   res.Charset,
		Summary:   sum,
	}, nil
}

// Run: stan runu dla ekranu mapowania
func (s *Service) Run(ctx context.Context, token string) (*RunView, error) {
	run, err := s.store(ctx).ByToken(token)
	if err != nil {
		return nil, err
	}
	return newRunView(run)
}

type FinalizeResult struct {
	Token string `json:"token"`
	Rows  int    `json:"rows"`
	matchStats
}

// FinalizeMapping zapisuje mapowanie, wyciąga wiersze i od razu je dopasowuje.
// Ponowne wywołanie na niezatwierdzonym runie podmienia wiersze.
func (s *Service) FinalizeMapping(ctx context.Context, token string, m Mapping) (*FinalizeResult, error) {
	m = m.trimmed()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var out *FinalizeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.store(ctx).WithTx(tx)
		run, err := st.ByToken(token)
		if err != nil {
			return err
		}
		if run.Applied() {
			return ErrRunApplied
		}

		tbl, err := stagedTable(run)
		if err != nil {
			return err
		}
		cols, err := m.resolve(tbl)
		if err != nil {
			return err
		}

		rows := cols.extract(run.ID, tbl)
		bySKU, err := s.match.index(tx, run.SupplierID)
		if err != nil {
			return err
		}
		stats, _ := s.match.classify(rows, bySKU)

		if err := st.ReplaceRows(run.ID, rows); err != nil {
			return err
		}
		if err := st.SaveMapping(run, m, s.now()); err != nil {
			return err
		}

		out = &FinalizeResult{Token: run.Token, Rows: len(rows), matchStats: stats}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observeMatch(out.matchStats)
	s.log.Info().
		Str("run", token).
		Int("rows", out.Rows).
		Int("matched", out.Matched).
		Int("unmatched", out.Unmatched).
		Int("multi", out.Multi).
		Msg("mapping finalized")
	return out, nil
}

type MatchResult struct {
	Token   string `json:"token"`
	Changed int    `json:"changed"`
	matchStats
}

// Match ponawia dopasowanie wierszy (np. po dodaniu brakujących powiązań).
func (s *Service) Match(ctx context.Context, token string) (*MatchResult, error) {
	var out *MatchResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.store(ctx).WithTx(tx)
		run, err := st.ByToken(token)
		if err != nil {
			return err
		}
		if run.Applied() {
			return ErrRunApplied
		}
		if !run.Mapped() {
			return ErrRunNotMapped
		}

		rows, err := st.Rows(run.ID)
		if err != nil {
			return err
		}
		bySKU, err := s.match.index(tx, run.SupplierID)
		if err != nil {
			return err
		}
		stats, changed := s.match.classify(rows, bySKU)
		for _, i := range changed {
			if err := st.UpdateMatch(&rows[i]); err != nil {
				return err
			}
		}
		out = &MatchResult{Token: run.Token, Changed: len(changed), matchStats: stats}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observeMatch(out.matchStats)
	s.log.Info().Str("run", token).Int("matched", out.Matched).Int("changed", out.Changed).Msg("rows rematched")
	return out, nil
}

// Rows: wiersze runu, również niedopasowane
func (s *Service) Rows(ctx context.Context, token string) ([]RowView, error) {
	st := s.store(ctx)
	run, err := st.ByToken(token)
	if err != nil {
		return nil, err
	}
	rows, err := st.Rows(run.ID)
	if err != nil {
		return nil, err
	}
	out := make([]RowView, len(rows))
	for i := range rows {
		out[i] = newRowView(&rows[i])
	}
	return out, nil
}

// History: wpisy historii kosztów zapisane przez run
func (s *Service) History(ctx context.Context, token string) ([]HistoryView, error) {
	st := s.store(ctx)
	run, err := st.ByToken(token)
	if err != nil {
		return nil, err
	}
	entries, err := st.History(run.ID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryView, len(entries))
	for i, e := range entries {
		out[i] = newHistoryView(e)
	}
	return out, nil
}

func stagedTable(run *db.ImportRun) (*table.Table, error) {
	var t table.Table
	if err := json.Unmarshal(run.TableJSON, &t); err != nil {
		return nil, fmt.Errorf("uszkodzona tabela runu %s: %w", run.Token, err)
	}
	return &t, nil
}
