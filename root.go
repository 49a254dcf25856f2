package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/apps/go-server/internal/config"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzles"
)

var rootCmd = &cobra.Command{
	Use:   "connections",
	Short: "Find the four groups of four",
	Long: `connections serves the puzzle game over HTTP, plays it in the terminal,
and checks puzzle catalogues.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("puzzles", "", "puzzle catalogue file (.json or .yaml); default is the built-in set")
}

// loadConfig reads the environment, letting --puzzles override PUZZLES_FILE.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Load()
	if f, _ := cmd.Flags().GetString("puzzles"); f != "" {
		cfg.PuzzlesFile = f
	}
	return cfg
}

func loadCatalogue(cfg config.Config) (*puzzles.Catalogue, error) {
	cat, err := puzzles.Load(cfg.PuzzlesFile)
	if err != nil {
		return nil, fmt.Errorf("load puzzles: %w", err)
	}
	return cat, nil
}
