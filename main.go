package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// wersję możesz nadpisać przez: -ldflags "-X 'main.ver=1.0.1'"
var ver = "1.0.0"

type rootFlags struct {
	dir     string
	cfgPath string
}

func newRootCmd() *cobra.Command {
	var rf rootFlags

	root := &cobra.Command{
		Use:           "cennik",
		Short:         "Import cenników dostawców i aktualizacja kosztów zakupu",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rf.dir, "dir", "", "katalog danych aplikacji (domyślnie <UserConfigDir>/cennik)")
	root.PersistentFlags().StringVar(&rf.cfgPath, "config", "", "ścieżka config.json (domyślnie <dir>/config.json)")

	root.AddCommand(
		newServeCmd(&rf),
		newStageCmd(&rf),
		newMapCmd(&rf),
		newMatchCmd(&rf),
		newRowsCmd(&rf),
		newApplyCmd(&rf),
		newHistoryCmd(&rf),
		newReplCmd(&rf),
	)
	return root
}

func main() {
	// kontekst sterujący życiem procesu (CTRL+C / zamknięcie sesji)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "błąd:", err)
		os.Exit(1)
	}
}
