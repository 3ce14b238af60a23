package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	conf "github.com/bartek5186/cennik/internal/config"
	"github.com/bartek5186/cennik/internal/importer"
)

const replHelp = "Komendy: stage <dostawca> <plik> | show <token> | map <token> | rows <token> | apply <token> | paths | quit"

func newReplCmd(rf *rootFlags) *cobra.Command {
	var actor uint
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Konsola operatora",
		RunE: withApp(rf, func(ctx context.Context, a *app, _ []string) error {
			return runRepl(ctx, a, optActor(actor), os.Stdin, os.Stdout)
		}),
	}
	cmd.Flags().UintVar(&actor, "actor", 0, "id operatora")
	return cmd
}

// runRepl: prosta pętla poleceń w terminalu
func runRepl(ctx context.Context, a *app, actor *uint, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "CENNIK CLI", ver)
	fmt.Fprintln(out, replHelp)
	sc := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			// enter – ignoruj
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		var err error
		switch cmd {
		case "stage":
			err = replStage(ctx, a, actor, args, out)
		case "show":
			err = needToken(args, func(tok string) error {
				v, err := a.svc.Run(ctx, tok)
				if err != nil {
					return err
				}
				return printJSON(out, v)
			})
		case "map":
			err = needToken(args, func(tok string) error {
				v, err := a.svc.Run(ctx, tok)
				if err != nil {
					return err
				}
				if v.Summary == nil {
					return importer.ErrMappingRequired
				}
				res, err := a.svc.FinalizeMapping(ctx, tok, importer.FromProposal(v.Summary.Proposed))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wiersze: %d, dopasowane: %d, niedopasowane: %d\n", res.Rows, res.Matched, res.Unmatched)
				return nil
			})
		case "rows":
			err = needToken(args, func(tok string) error {
				rows, err := a.svc.Rows(ctx, tok)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Fprintf(out, "%4d  %-20s  %-10s  %d\n", r.Line, r.SKU, r.Status, r.MatchCount)
				}
				return nil
			})
		case "apply":
			err = needToken(args, func(tok string) error {
				res, err := a.svc.Apply(ctx, tok, actor)
				if err != nil {
					return err
				}
				if res.AlreadyApplied {
					fmt.Fprintln(out, "Run był już zatwierdzony, nic do zrobienia")
					return nil
				}
				fmt.Fprintf(out, "Zatwierdzono: wiersze %d, powiązania %d, wpisy historii %d\n",
					res.RowsApplied, res.Associations, res.HistoryEntries)
				return nil
			})
		case "paths":
			fmt.Fprintln(out, "Dane:", a.dir)
			fmt.Fprintln(out, "Config:", a.cfgPath)
			if a.cfg != nil {
				fmt.Fprintln(out, "Logi:", conf.ResolvePath(a.dir, a.cfg.Log.File))
			}
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintln(out, "Nieznana komenda.", replHelp)
		}

		if err != nil {
			a.log.Error().Err(err).Str("cmd", cmd).Msg("repl")
			if code := importer.Code(err); code != "" {
				fmt.Fprintf(out, "Błąd [%s]: %v\n", code, err)
			} else {
				fmt.Fprintln(out, "Błąd:", err)
			}
		}
	}
}

func replStage(ctx context.Context, a *app, actor *uint, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("użycie: stage <dostawca> <plik>")
	}
	sup, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", importer.ErrInvalidSupplier, args[0])
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	res, err := a.svc.Stage(ctx, importer.StageRequest{
		SupplierID: uint(sup),
		Filename:   filepath.Base(args[1]),
		Data:       data,
		ActorID:    actor,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Token: %s (format %s, wierszy %d)\n", res.Token, res.Format, res.Summary.TotalRows)
	return nil
}

func needToken(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("podaj token runu")
	}
	return fn(args[0])
}
