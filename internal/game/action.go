// internal/game/action.go
//
// Player actions as data. Every input (HTTP body, terminal command) becomes
// an Action and goes through Session.Dispatch, so both front ends share one
// path into the engine.

package game

import (
	"fmt"
	"math/rand/v2"
)

// ActionKind names a player action.
type ActionKind string

const (
	ActionSelect      ActionKind = "select"
	ActionDeselectAll ActionKind = "deselect_all"
	ActionShuffle     ActionKind = "shuffle"
	ActionSubmit      ActionKind = "submit"
)

// Action is one discrete player input. Item is only used by ActionSelect.
type Action struct {
	Kind ActionKind `json:"kind"`
	Item string     `json:"item,omitempty"`
}

// ParseActionKind validates a kind coming from the outside world.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionSelect, ActionDeselectAll, ActionShuffle, ActionSubmit:
		return k, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Dispatch routes a to the matching operation.
// The returned evaluation is nil for everything but ActionSubmit.
func (s *Session) Dispatch(a Action, rng *rand.Rand) *Evaluation {
	switch a.Kind {
	case ActionSelect:
		s.ToggleSelect(a.Item)
	case ActionDeselectAll:
		s.DeselectAll()
	case ActionShuffle:
		s.Shuffle(rng)
	case ActionSubmit:
		ev := s.Submit()
		return &ev
	}
	return nil
}
