package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/apps/go-server/internal/puzzles"
)

var puzzlesCmd = &cobra.Command{
	Use:   "puzzles",
	Short: "List the puzzle catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalogue(loadConfig(cmd))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range cat.List() {
			fmt.Fprintf(out, "%2d  %-24s %s\n", e.Index+1, e.Name, puzzles.Stars(e.Difficulty))
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check that a catalogue file parses and every puzzle is well formed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := puzzles.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d puzzles OK\n", args[0], cat.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(puzzlesCmd)
	puzzlesCmd.AddCommand(validateCmd)
}
