package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/apps/go-server/internal/game"
	"github.com/robalobadob/connections/apps/go-server/internal/logging"
	"github.com/robalobadob/connections/apps/go-server/internal/terminal"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a puzzle in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		logging.Setup(cfg.LogLevel, "console")
		logging.Silence()

		cat, err := loadCatalogue(cfg)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("puzzle")
		if n < 1 || n > cat.Len() {
			return fmt.Errorf("no puzzle %d (have 1–%d)", n, cat.Len())
		}
		lang, _ := cmd.Flags().GetString("lang")
		if lang == "" {
			lang = cfg.Lang
		}
		delay := cfg.RevealDelay
		if cmd.Flags().Changed("reveal-delay") {
			delay, _ = cmd.Flags().GetDuration("reveal-delay")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		p := terminal.NewPlayer(cmd.InOrStdin(), terminal.NewRenderer(cmd.OutOrStdout()), cat, terminal.Options{
			RevealDelay: delay,
			Locale:      game.MatchLocale(lang),
		})
		return p.Run(ctx, n-1)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().IntP("puzzle", "n", 1, "puzzle number to start with")
	playCmd.Flags().String("lang", "", "language for the results text (en, nb); overrides LANG_PREF")
	playCmd.Flags().Duration("reveal-delay", 0, "pause before a found group leaves the grid (overrides REVEAL_DELAY)")
}
