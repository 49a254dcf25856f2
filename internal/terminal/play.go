// internal/terminal/play.go
//
// Line-driven game loop for the `play` command.

package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/apps/go-server/internal/game"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzles"
)

const help = `Commands:
  1 5 9 12   toggle tiles by number (or type the words, one item per line
             when an item has spaces)
  g, enter   submit the selected four
  s          shuffle
  d          deselect all
  p N        switch to puzzle N
  l          list puzzles
  q          quit`

// Options configure a Player.
type Options struct {
	RevealDelay time.Duration // pause between spotting a match and removing its tiles
	Locale      game.Locale
	Rand        *rand.Rand // nil → global source
}

// Player drives one terminal game at a time from line-based input.
type Player struct {
	r    *Renderer
	in   *bufio.Scanner
	cat  *puzzles.Catalogue
	opts Options
	sess *game.Session
}

// NewPlayer wires a catalogue to an input stream and a renderer.
func NewPlayer(in io.Reader, r *Renderer, cat *puzzles.Catalogue, opts Options) *Player {
	return &Player{r: r, in: bufio.NewScanner(in), cat: cat, opts: opts}
}

// Session returns the current session (nil before Run loads one).
func (p *Player) Session() *game.Session { return p.sess }

// Run loads puzzle index start and processes commands until quit, EOF or ctx ends.
func (p *Player) Run(ctx context.Context, start int) error {
	if err := p.load(start); err != nil {
		return err
	}
	p.r.Println(help)
	p.render()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.in.Scan() {
			return p.in.Err()
		}
		quit, err := p.handle(ctx, strings.TrimSpace(p.in.Text()))
		if err != nil {
			p.r.Println(err)
			continue
		}
		if quit {
			return nil
		}
		p.render()
	}
}

func (p *Player) load(i int) error {
	pz, ok := p.cat.Get(i)
	if !ok {
		return fmt.Errorf("no puzzle %d (have 1–%d)", i+1, p.cat.Len())
	}
	p.sess = game.New(pz, p.opts.Rand)
	log.Debug().Str("puzzle", pz.Name).Str("gameId", p.sess.ID).Msg("puzzle loaded")
	return nil
}

func (p *Player) render() { p.r.Render(p.sess.Snapshot(p.opts.Locale)) }

// handle runs one input line. It reports quit=true on "q".
func (p *Player) handle(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		// A bare enter submits once four tiles are picked.
		if len(p.sess.Active) == game.GroupSize {
			return false, p.submit(ctx)
		}
		return false, nil
	}
	switch fields[0] {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		p.r.Println(help)
	case "s", "shuffle":
		p.sess.Dispatch(game.Action{Kind: game.ActionShuffle}, p.opts.Rand)
	case "d", "deselect":
		p.sess.Dispatch(game.Action{Kind: game.ActionDeselectAll}, p.opts.Rand)
	case "g", "go", "submit":
		return false, p.submit(ctx)
	case "l", "list":
		for _, e := range p.cat.List() {
			p.r.Println(fmt.Sprintf("%2d  %-24s %s", e.Index+1, e.Name, puzzles.Stars(e.Difficulty)))
		}
	case "p", "puzzle":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: p N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("bad puzzle number %q", fields[1])
		}
		return false, p.load(n - 1)
	default:
		// Items may contain spaces; the whole line wins over its fields.
		if it, ok := p.item(line); ok {
			p.sess.Dispatch(game.Action{Kind: game.ActionSelect, Item: it}, p.opts.Rand)
			return false, nil
		}
		return false, p.toggle(fields)
	}
	return false, nil
}

// toggle selects tiles by their 1-based grid position or by the item text.
// Every field is resolved against the grid before any toggle runs.
func (p *Player) toggle(fields []string) error {
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		it, err := p.resolve(f)
		if err != nil {
			return err
		}
		items = append(items, it)
	}
	for _, it := range items {
		p.sess.Dispatch(game.Action{Kind: game.ActionSelect, Item: it}, p.opts.Rand)
	}
	return nil
}

func (p *Player) resolve(f string) (string, error) {
	if n, err := strconv.Atoi(f); err == nil {
		if n < 1 || n > len(p.sess.Items) {
			return "", fmt.Errorf("no tile %d", n)
		}
		return p.sess.Items[n-1], nil
	}
	if it, ok := p.item(f); ok {
		return it, nil
	}
	return "", fmt.Errorf("unknown command %q (h for help)", f)
}

// item finds a grid item by text, ignoring case and surrounding space.
func (p *Player) item(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, it := range p.sess.Items {
		if strings.EqualFold(it, text) {
			return it, true
		}
	}
	return "", false
}

// submit evaluates first and, on a match, shows it for RevealDelay before
// the tiles leave the grid.
func (p *Player) submit(ctx context.Context) error {
	ev := p.sess.Evaluate()
	if ev.Outcome == game.OutcomeMatch && p.opts.RevealDelay > 0 {
		p.r.Println("✓", ev.Group.Category)
		select {
		case <-time.After(p.opts.RevealDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.sess.Apply(ev)
	if ev.Outcome == game.OutcomeIgnored && !p.sess.Finished {
		return fmt.Errorf("select four tiles first")
	}
	return nil
}
