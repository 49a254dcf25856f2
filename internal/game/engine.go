// internal/game/engine.go
//
// Core game engine for a single Connections session.
// Responsibilities:
//   - Create new sessions from a puzzle (items shuffled, 4 mistakes).
//   - Selection: toggle a tile, deselect all, shuffle the grid.
//   - Judge a guess (Evaluate) and apply its effect (Apply).
//   - Track state transitions: playing → won/lost.
//
// Notes:
//   - Rule violations (5th tile, submit with fewer than 4, acting after the
//     game ended) are silent no-ops, never errors.
//   - Randomness is injected so tests can pin the grid order.
package game

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// New constructs a session for p with the items shuffled by rng.
// A nil rng uses the global source.
func New(p Puzzle, rng *rand.Rand) *Session {
	s := &Session{
		ID:                uuid.NewString(),
		Puzzle:            p,
		Items:             p.Items(),
		Active:            []string{},
		Completed:         []Group{},
		MistakesRemaining: MaxMistakes,
		Guesses:           [][]string{},
		StartedAt:         time.Now().UTC(),
	}
	shuffle(s.Items, rng)
	return s
}

// Clone returns a deep copy of s. Puzzle data is shared; it never changes
// after load.
func (s *Session) Clone() *Session {
	c := *s
	c.Items = slices.Clone(s.Items)
	c.Active = slices.Clone(s.Active)
	c.Completed = slices.Clone(s.Completed)
	c.Guesses = make([][]string, len(s.Guesses))
	for i, g := range s.Guesses {
		c.Guesses[i] = slices.Clone(g)
	}
	return &c
}

// ToggleSelect selects or deselects item.
// Selecting is capped at GroupSize; items not on the grid are ignored.
func (s *Session) ToggleSelect(item string) {
	if s.Finished {
		return
	}
	s.clearAlerts()
	if i := slices.Index(s.Active, item); i >= 0 {
		s.Active = slices.Delete(s.Active, i, i+1)
		return
	}
	if len(s.Active) >= GroupSize || !slices.Contains(s.Items, item) {
		return
	}
	s.Active = append(s.Active, item)
}

// DeselectAll clears the selection.
func (s *Session) DeselectAll() {
	if s.Finished {
		return
	}
	s.clearAlerts()
	s.Active = s.Active[:0]
}

// Shuffle permutes the grid order. Selection and solved groups are untouched.
func (s *Session) Shuffle(rng *rand.Rand) {
	if s.Finished {
		return
	}
	s.clearAlerts()
	shuffle(s.Items, rng)
}

// Submit judges the current selection and applies the result.
func (s *Session) Submit() Evaluation {
	ev := s.Evaluate()
	s.Apply(ev)
	return ev
}

// Evaluate judges the current selection without changing the session.
func (s *Session) Evaluate() Evaluation {
	if s.Finished || len(s.Active) != GroupSize {
		return Evaluation{Outcome: OutcomeIgnored}
	}
	guess := slices.Clone(s.Active)
	slices.Sort(guess)

	if s.alreadyGuessed(guess) {
		return Evaluation{Outcome: OutcomeAlreadyGuessed, Guess: guess}
	}
	if g, ok := s.matchedGroup(); ok {
		return Evaluation{Outcome: OutcomeMatch, Guess: guess, Group: &g}
	}
	return Evaluation{Outcome: OutcomeMiss, Guess: guess, OneAway: s.oneAway()}
}

// Apply performs the state change described by ev.
//
// Apply is a no-op when ev no longer describes the current selection, so
// a deferred Apply after the player moved on cannot corrupt the session.
func (s *Session) Apply(ev Evaluation) {
	if s.Finished || ev.Outcome == OutcomeIgnored {
		return
	}
	current := slices.Clone(s.Active)
	slices.Sort(current)
	if !slices.Equal(current, ev.Guess) {
		return
	}
	s.clearAlerts()

	switch ev.Outcome {
	case OutcomeAlreadyGuessed:
		s.AlreadyGuessed = true

	case OutcomeMatch:
		if s.alreadyGuessed(ev.Guess) || ev.Group == nil {
			return
		}
		s.Guesses = append(s.Guesses, ev.Guess)
		s.Completed = append(s.Completed, *ev.Group)
		s.Items = slices.DeleteFunc(s.Items, func(it string) bool {
			return slices.Contains(ev.Guess, it)
		})
		s.Active = s.Active[:0]
		if len(s.Completed) == len(s.Puzzle.Groups) {
			s.endGame(false)
		}

	case OutcomeMiss:
		if s.alreadyGuessed(ev.Guess) {
			return
		}
		s.Guesses = append(s.Guesses, ev.Guess)
		s.MistakesRemaining = max(s.MistakesRemaining-1, 0)
		s.OneAway = ev.OneAway
		if s.MistakesRemaining == 0 {
			s.endGame(true)
		}
	}
}

// State reports a coarse string representation of the session state.
func (s *Session) State() string {
	if s.Finished {
		if s.Won {
			return StateWon
		}
		return StateLost
	}
	return StatePlaying
}

// MistakesMade is the number of wrong guesses so far.
func (s *Session) MistakesMade() int { return MaxMistakes - s.MistakesRemaining }

// endGame marks the session finished. On a loss the unsolved groups are
// revealed by appending them, in puzzle order, after the solved ones.
func (s *Session) endGame(lost bool) {
	s.Finished = true
	s.Won = !lost
	if !lost {
		return
	}
	for _, g := range s.Puzzle.Groups {
		if !s.isCompleted(g) {
			s.Completed = append(s.Completed, g)
		}
	}
}

// matchedGroup returns the group holding every selected item, if any.
func (s *Session) matchedGroup() (Group, bool) {
	for _, g := range s.Puzzle.Groups {
		all := true
		for _, it := range s.Active {
			if !g.Contains(it) {
				all = false
				break
			}
		}
		if all {
			return g, true
		}
	}
	return Group{}, false
}

// oneAway reports whether some group shares exactly 3 items with the selection.
func (s *Session) oneAway() bool {
	for _, g := range s.Puzzle.Groups {
		n := 0
		for _, it := range s.Active {
			if g.Contains(it) {
				n++
			}
		}
		if n == GroupSize-1 {
			return true
		}
	}
	return false
}

// alreadyGuessed compares sorted guesses structurally.
func (s *Session) alreadyGuessed(guess []string) bool {
	for _, g := range s.Guesses {
		if slices.Equal(g, guess) {
			return true
		}
	}
	return false
}

// isCompleted matches on category and first item; items are unique per puzzle.
func (s *Session) isCompleted(g Group) bool {
	for _, c := range s.Completed {
		if c.Category == g.Category && len(c.Items) > 0 && len(g.Items) > 0 && c.Items[0] == g.Items[0] {
			return true
		}
	}
	return false
}

func (s *Session) clearAlerts() {
	s.OneAway = false
	s.AlreadyGuessed = false
}

// shuffle is an in-place Fisher–Yates permutation.
func shuffle(items []string, rng *rand.Rand) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(items) - 1; i > 0; i-- {
		j := intN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
