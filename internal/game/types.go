// internal/game/types.go
//
// Core type definitions for the Connections game engine.
// Defines:
//   - Puzzle/Group: the immutable puzzle data loaded from the catalogue.
//   - Session: state for a single in-progress or finished game.
//   - Outcome/Evaluation: the result of evaluating a submitted guess.

package game

import "time"

const (
	// GroupSize is the number of items in every group and in every guess.
	GroupSize = 4
	// GroupCount is the number of groups in every puzzle.
	GroupCount = 4
	// MaxMistakes is the mistake budget a session starts with.
	MaxMistakes = 4
	// MaxStars is the top of the puzzle difficulty scale.
	MaxStars = 5
)

// Group is one hidden category of a puzzle.
type Group struct {
	Category   string   `json:"category" yaml:"category"`
	Difficulty int      `json:"difficulty" yaml:"difficulty"` // tier 1–4, sort key and colour key
	Items      []string `json:"items" yaml:"items"`
}

// Contains reports whether item belongs to the group.
func (g Group) Contains(item string) bool {
	for _, it := range g.Items {
		if it == item {
			return true
		}
	}
	return false
}

// Puzzle is a named set of four groups. Immutable once loaded.
type Puzzle struct {
	Name       string  `json:"puzzle_name" yaml:"puzzle_name"`
	Difficulty int     `json:"puzzle_difficulty" yaml:"puzzle_difficulty"` // 0–5 stars
	Groups     []Group `json:"groups" yaml:"groups"`
}

// Items returns every item of the puzzle in group order.
func (p Puzzle) Items() []string {
	out := make([]string, 0, len(p.Groups)*GroupSize)
	for _, g := range p.Groups {
		out = append(out, g.Items...)
	}
	return out
}

// GroupOf returns the group an item belongs to.
func (p Puzzle) GroupOf(item string) (Group, bool) {
	for _, g := range p.Groups {
		if g.Contains(item) {
			return g, true
		}
	}
	return Group{}, false
}

// Session holds the state of a single game.
//
// Items ∪ items(Completed) always partitions the puzzle's items and
// Active is always a subset of Items.
type Session struct {
	ID                string     `json:"id"`
	Puzzle            Puzzle     `json:"puzzle"`
	Items             []string   `json:"items"`     // unsolved items in grid order
	Active            []string   `json:"active"`    // current selection, 0–4 items
	Completed         []Group    `json:"completed"` // solved groups in solve order
	MistakesRemaining int        `json:"mistakesRemaining"`
	Guesses           [][]string `json:"guesses"` // each sorted
	Finished          bool       `json:"finished"`
	Won               bool       `json:"won"`
	StartedAt         time.Time  `json:"startedAt"`

	// Alerts raised by the last action; cleared by the next one.
	OneAway        bool `json:"oneAway"`
	AlreadyGuessed bool `json:"alreadyGuessed"`

	// Bookkeeping for the server that hosts the session. The engine never
	// reads these; they travel with the session through every store.
	Mode        string `json:"mode,omitempty"`      // normal | daily
	Owner       string `json:"owner,omitempty"`     // user or anonymous ID that started it
	DailyDate   string `json:"dailyDate,omitempty"` // YYYY-MM-DD for daily games
	PuzzleIndex int    `json:"puzzleIndex"`         // catalogue index
}

// Outcome classifies what a submit did.
type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"         // not 4 selected, or game finished
	OutcomeAlreadyGuessed Outcome = "already_guessed" // same 4 items tried before
	OutcomeMatch          Outcome = "match"
	OutcomeMiss           Outcome = "miss"
)

// Evaluation is the pure result of judging the current selection.
// It is produced by Session.Evaluate and consumed by Session.Apply.
type Evaluation struct {
	Outcome Outcome  `json:"outcome"`
	Guess   []string `json:"guess,omitempty"` // sorted selection
	Group   *Group   `json:"group,omitempty"` // matched group, on OutcomeMatch
	OneAway bool     `json:"oneAway"`         // exactly 3 of 4 share a group, on OutcomeMiss
}

// State strings reported by Session.State.
const (
	StatePlaying = "playing"
	StateWon     = "won"
	StateLost    = "lost"
)
