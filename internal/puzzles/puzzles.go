// internal/puzzles/puzzles.go
//
// Provides the puzzle catalogue for the game engine.
//
// Responsibilities:
//   - Load puzzles from a file (JSON or YAML) or fall back to the embedded
//     default catalogue.
//   - Validate every puzzle once at load time, so the engine can assume
//     well-formed data.
//   - Supply lookups: List, Get, Len.
//
// Catalogue file shape (JSON shown; YAML uses the same keys):
//   [{"puzzle_name": "...", "puzzle_difficulty": 3,
//     "groups": [{"category": "...", "difficulty": 1, "items": ["a","b","c","d"]}, ...]}]
//
// Constraints:
//   • Exactly 4 groups of 4 items per puzzle.
//   • Group difficulty 1–4, puzzle difficulty 0–5.
//   • Items are non-empty and unique across the whole puzzle.

package puzzles

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/connections/apps/go-server/assets"
	"github.com/robalobadob/connections/apps/go-server/internal/game"
)

// ErrEmpty is returned when a catalogue holds no puzzles.
var ErrEmpty = errors.New("puzzles: catalogue is empty")

// Catalogue is the read-only list of loaded puzzles.
type Catalogue struct {
	puzzles []game.Puzzle
}

// Entry is the selector view of one puzzle.
type Entry struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Difficulty int    `json:"difficulty"`
}

// Load reads the catalogue at path, or the embedded default when path is empty.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Parse(assets.DefaultCatalogue(), "json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalogue. format is "json", "yaml" or "yml".
func Parse(data []byte, format string) (*Catalogue, error) {
	var list []game.Puzzle
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "json", "":
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalogue format %q", format)
	}
	if len(list) == 0 {
		return nil, ErrEmpty
	}
	for i, p := range list {
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("puzzle %d (%q): %w", i, p.Name, err)
		}
	}
	return &Catalogue{puzzles: list}, nil
}

// Validate checks a single puzzle against the catalogue rules.
func Validate(p game.Puzzle) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("missing puzzle_name")
	}
	if p.Difficulty < 0 || p.Difficulty > game.MaxStars {
		return fmt.Errorf("puzzle_difficulty %d outside 0–%d", p.Difficulty, game.MaxStars)
	}
	if len(p.Groups) != game.GroupCount {
		return fmt.Errorf("want %d groups, got %d", game.GroupCount, len(p.Groups))
	}
	seen := make(map[string]string, game.GroupCount*game.GroupSize)
	for _, g := range p.Groups {
		if strings.TrimSpace(g.Category) == "" {
			return errors.New("group with empty category")
		}
		if g.Difficulty < 1 || g.Difficulty > game.GroupCount {
			return fmt.Errorf("group %q: difficulty %d outside 1–%d", g.Category, g.Difficulty, game.GroupCount)
		}
		if len(g.Items) != game.GroupSize {
			return fmt.Errorf("group %q: want %d items, got %d", g.Category, game.GroupSize, len(g.Items))
		}
		for _, it := range g.Items {
			if strings.TrimSpace(it) == "" {
				return fmt.Errorf("group %q: empty item", g.Category)
			}
			if other, dup := seen[it]; dup {
				return fmt.Errorf("item %q appears in %q and %q", it, other, g.Category)
			}
			seen[it] = g.Category
		}
	}
	return nil
}

// Len returns the number of puzzles.
func (c *Catalogue) Len() int { return len(c.puzzles) }

// Get returns puzzle i.
func (c *Catalogue) Get(i int) (game.Puzzle, bool) {
	if i < 0 || i >= len(c.puzzles) {
		return game.Puzzle{}, false
	}
	return c.puzzles[i], true
}

// List returns the selector entries in catalogue order.
func (c *Catalogue) List() []Entry {
	out := make([]Entry, 0, len(c.puzzles))
	for i, p := range c.puzzles {
		out = append(out, Entry{Index: i, Name: p.Name, Difficulty: p.Difficulty})
	}
	return out
}

// Stars renders a difficulty as filled and empty stars, e.g. "★★★☆☆".
func Stars(difficulty int) string {
	difficulty = min(max(difficulty, 0), game.MaxStars)
	return strings.Repeat("★", difficulty) + strings.Repeat("☆", game.MaxStars-difficulty)
}
