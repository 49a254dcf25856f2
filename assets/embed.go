// Package assets embeds the default puzzle catalogue so the server runs
// even when no PUZZLES_FILE is configured.
package assets

import (
	_ "embed"
)

//go:embed games.json
var defaultCatalogue []byte

// DefaultCatalogue returns the embedded games.json contents.
func DefaultCatalogue() []byte {
	return defaultCatalogue
}
