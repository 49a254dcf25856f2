// internal/game/snapshot.go
//
// Read-only render view of a session:
//   - grid tiles with selection flags, solved groups sorted by difficulty;
//   - mistakes left, state, one-shot alerts, button enablement;
//   - the results summary once the game is over.

package game

import (
	"slices"
	"sort"
)

// Tile is one grid cell as shown to the player.
type Tile struct {
	Item     string `json:"item"`
	Selected bool   `json:"selected"`
}

// Snapshot is the render view of a session after an action.
type Snapshot struct {
	GameID            string   `json:"gameId"`
	PuzzleName        string   `json:"puzzleName"`
	PuzzleDifficulty  int      `json:"puzzleDifficulty"`
	Grid              []Tile   `json:"grid"`
	Completed         []Group  `json:"completed"` // sorted by difficulty
	MistakesRemaining int      `json:"mistakesRemaining"`
	State             string   `json:"state"` // playing | won | lost
	OneAway           bool     `json:"oneAway"`
	AlreadyGuessed    bool     `json:"alreadyGuessed"`
	CanSubmit         bool     `json:"canSubmit"`
	CanDeselect       bool     `json:"canDeselect"`
	CanShuffle        bool     `json:"canShuffle"`
	Summary           *Summary `json:"summary,omitempty"` // set once finished
}

// Snapshot builds the render view of s.
func (s *Session) Snapshot(loc Locale) Snapshot {
	grid := make([]Tile, 0, len(s.Items))
	for _, it := range s.Items {
		grid = append(grid, Tile{Item: it, Selected: slices.Contains(s.Active, it)})
	}
	snap := Snapshot{
		GameID:            s.ID,
		PuzzleName:        s.Puzzle.Name,
		PuzzleDifficulty:  s.Puzzle.Difficulty,
		Grid:              grid,
		Completed:         s.SortedCompleted(),
		MistakesRemaining: s.MistakesRemaining,
		State:             s.State(),
		OneAway:           s.OneAway,
		AlreadyGuessed:    s.AlreadyGuessed,
		CanSubmit:         !s.Finished && len(s.Active) == GroupSize,
		CanDeselect:       !s.Finished && len(s.Active) > 0,
		CanShuffle:        !s.Finished,
	}
	if s.Finished {
		sum := s.Summary(loc)
		snap.Summary = &sum
	}
	return snap
}

// SortedCompleted returns the solved groups ordered by difficulty ascending.
// Ties keep solve order.
func (s *Session) SortedCompleted() []Group {
	out := slices.Clone(s.Completed)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Difficulty < out[j].Difficulty })
	return out
}
