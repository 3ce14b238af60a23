package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	conf "github.com/bartek5186/cennik/internal/config"
	"github.com/bartek5186/cennik/internal/httpapi"
	"github.com/bartek5186/cennik/internal/importer"
)

// withApp otwiera aplikację na czas jednej komendy
func withApp(rf *rootFlags, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(rf)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optActor(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func newServeCmd(rf *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Uruchom HTTP API",
		RunE: withApp(rf, func(ctx context.Context, a *app, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			srv := httpapi.New(a.svc, a.log, httpapi.Options{MaxUploadMB: a.cfg.HTTP.MaxUploadMB})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				a.log.Info().Msg("zamykanie serwera HTTP")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "adres nasłuchu (domyślnie z configa)")
	return cmd
}

func newStageCmd(rf *rootFlags) *cobra.Command {
	var (
		supplier  uint
		file      string
		delimiter string
		discount  string
		actor     uint
	)
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Wczytaj cennik z pliku (--file) albo ze standardowego wejścia",
		RunE: withApp(rf, func(ctx context.Context, a *app, _ []string) error {
			req := importer.StageRequest{SupplierID: supplier, ActorID: optActor(actor)}

			d, err := decimal.NewFromString(discount)
			if err != nil {
				return fmt.Errorf("%w: --discount=%q", importer.ErrInvalidDiscount, discount)
			}
			req.FileDiscount = d

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				req.Data, req.Filename = data, filepath.Base(file)
			} else {
				text, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				req.Text = string(text)
				if delimiter != "" {
					if req.Delimiter = conf.DelimiterRune(delimiter); req.Delimiter == 0 {
						return fmt.Errorf("nieznany separator %q", delimiter)
					}
				}
			}

			res, err := a.svc.Stage(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, res)
		}),
	}
	cmd.Flags().UintVar(&supplier, "supplier", 0, "id dostawcy (wymagane)")
	cmd.Flags().StringVar(&file, "file", "", "plik cennika (csv/txt/xlsx); bez flagi czyta stdin")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "wymuszony separator dla tekstu: tab ; , |")
	cmd.Flags().StringVar(&discount, "discount", "0", "rabat z pliku w %")
	cmd.Flags().UintVar(&actor, "actor", 0, "id operatora")
	_ = cmd.MarkFlagRequired("supplier")
	return cmd
}

func newMapCmd(rf *rootFlags) *cobra.Command {
	var (
		m        importer.Mapping
		proposed bool
	)
	cmd := &cobra.Command{
		Use:   "map <token>",
		Short: "Potwierdź mapowanie kolumn i dopasuj wiersze",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, func(ctx context.Context, a *app, args []string) error {
			if proposed {
				v, err := a.svc.Run(ctx, args[0])
				if err != nil {
					return err
				}
				if v.Summary != nil {
					m = importer.FromProposal(v.Summary.Proposed)
				}
			}
			res, err := a.svc.FinalizeMapping(ctx, args[0], m)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, res)
		}),
	}
	cmd.Flags().StringVar(&m.SKU, "sku", "", "kolumna z SKU dostawcy")
	cmd.Flags().StringVar(&m.Price, "price", "", "kolumna z ceną")
	cmd.Flags().StringVar(&m.CostType, "cost-type", "", "kolumna z typem UNIT/PACK (opcjonalnie)")
	cmd.Flags().StringVar(&m.UnitsPerPack, "units", "", "kolumna z ilością w opakowaniu (opcjonalnie)")
	cmd.Flags().BoolVar(&proposed, "proposed", false, "użyj mapowania zaproponowanego przez analizę")
	return cmd
}

func newMatchCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "match <token>",
		Short: "Ponów dopasowanie SKU",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, func(ctx context.Context, a *app, args []string) error {
			res, err := a.svc.Match(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, res)
		}),
	}
}

func newRowsCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rows <token>",
		Short: "Pokaż wiersze runu",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, func(ctx context.Context, a *app, args []string) error {
			rows, err := a.svc.Rows(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, rows)
		}),
	}
}

func newApplyCmd(rf *rootFlags) *cobra.Command {
	var actor uint
	cmd := &cobra.Command{
		Use:   "apply <token>",
		Short: "Zatwierdź nowe koszty z runu",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, func(ctx context.Context, a *app, args []string) error {
			res, err := a.svc.Apply(ctx, args[0], optActor(actor))
			if err != nil {
				return fmt.Errorf("%s: %w", importer.Code(err), err)
			}
			return printJSON(os.Stdout, res)
		}),
	}
	cmd.Flags().UintVar(&actor, "actor", 0, "id operatora")
	return cmd
}

func newHistoryCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <token>",
		Short: "Pokaż historię kosztów zapisaną przez run",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(rf, func(ctx context.Context, a *app, args []string) error {
			h, err := a.svc.History(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, h)
		}),
	}
}
