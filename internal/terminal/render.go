// Package terminal renders game snapshots to a terminal and runs the
// interactive `play` loop on top of the game engine.
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/robalobadob/connections/apps/go-server/internal/game"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzles"
)

// tierBackground holds the tile colours for group tiers 1–4.
var tierBackground = map[int]string{
	1: "#F9DF6D",
	2: "#A0C35A",
	3: "#B0C4EF",
	4: "#BA81C5",
}

const columns = 4

// Renderer draws snapshots onto a termenv output.
type Renderer struct {
	out *termenv.Output
}

// NewRenderer detects the colour profile of w.
func NewRenderer(w io.Writer, opts ...termenv.OutputOption) *Renderer {
	return &Renderer{out: termenv.NewOutput(w, opts...)}
}

// Render writes the full board for snap.
func (r *Renderer) Render(snap game.Snapshot) {
	o := r.out
	fmt.Fprintf(o, "\n%s  %s\n\n", o.String(snap.PuzzleName).Bold(), puzzles.Stars(snap.PuzzleDifficulty))

	for _, g := range snap.Completed {
		line := fmt.Sprintf(" %-20s %s ", strings.ToUpper(g.Category), strings.Join(g.Items, ", "))
		style := o.String(line).Foreground(o.Color("#000000"))
		if bg, ok := tierBackground[g.Difficulty]; ok {
			style = style.Background(o.Color(bg))
		}
		fmt.Fprintln(o, style)
	}
	if len(snap.Completed) > 0 {
		fmt.Fprintln(o)
	}

	width := 0
	for _, t := range snap.Grid {
		width = max(width, len([]rune(t.Item)))
	}
	for i, t := range snap.Grid {
		cell := fmt.Sprintf("%2d %-*s", i+1, width, t.Item)
		if t.Selected {
			fmt.Fprint(o, o.String("["+cell+"]").Reverse().Bold())
		} else {
			fmt.Fprint(o, " "+cell+" ")
		}
		if (i+1)%columns == 0 || i == len(snap.Grid)-1 {
			fmt.Fprintln(o)
		} else {
			fmt.Fprint(o, " ")
		}
	}

	dots := strings.Repeat("●", snap.MistakesRemaining) + strings.Repeat("○", game.MaxMistakes-snap.MistakesRemaining)
	fmt.Fprintf(o, "\nMistakes remaining: %s\n", dots)

	if snap.OneAway {
		fmt.Fprintln(o, o.String("One away...").Foreground(o.Color("#E5A000")))
	}
	if snap.AlreadyGuessed {
		fmt.Fprintln(o, o.String("Already guessed!").Foreground(o.Color("#E5A000")))
	}
	if snap.Summary != nil {
		r.RenderSummary(*snap.Summary)
	}
}

// RenderSummary writes the results block.
func (r *Renderer) RenderSummary(sum game.Summary) {
	o := r.out
	fmt.Fprintf(o, "\n%s\n%s\n\n%s", o.String(sum.Title).Bold(), sum.Subtitle, sum.Emojis)
}

// Println writes a plain status line.
func (r *Renderer) Println(a ...any) {
	fmt.Fprintln(r.out, a...)
}
