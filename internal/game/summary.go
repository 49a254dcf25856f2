// internal/game/summary.go
//
// End-of-game results: a title keyed by mistakes made, a subtitle naming
// the puzzle, and a shareable emoji grid (one line per guess, one colour
// per item by the tier of the group it belongs to).

package game

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale selects the text used in summaries.
type Locale int

const (
	English Locale = iota
	Norwegian
)

var (
	localeTags = []language.Tag{language.English, language.MustParse("nb")}
	matcher    = language.NewMatcher(localeTags)
)

// MatchLocale picks the best supported locale for the given language
// preferences (Accept-Language values or plain tags such as "nb").
func MatchLocale(prefs ...string) Locale {
	_, idx := language.MatchStrings(matcher, prefs...)
	if idx < 0 || idx >= len(localeTags) {
		return English
	}
	return Locale(idx)
}

// String returns the BCP 47 tag of the locale.
func (l Locale) String() string {
	if int(l) < 0 || int(l) >= len(localeTags) {
		return localeTags[0].String()
	}
	return localeTags[l].String()
}

type localeText struct {
	titles []string // indexed by mistakes made; last entry also covers a loss
	solved string
	failed string
}

var texts = map[Locale]localeText{
	English: {
		titles: []string{"Perfect!", "Incredible!", "Great!", "Good!", "Tough luck..."},
		solved: "You solved %q",
		failed: "You played %q",
	},
	Norwegian: {
		titles: []string{"Perfekt!", "Utrolig!", "Bra jobbet!", "Bra!", "Synd..."},
		solved: "Du løste %q",
		failed: "Du spilte %q",
	},
}

// TierColors maps a group difficulty tier to its colour symbol.
var TierColors = map[int]string{1: "🟨", 2: "🟩", 3: "🟦", 4: "🟪"}

const unknownColor = "⬜"

// Summary is the results view shown once a game is finished.
type Summary struct {
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle"`
	Lines        []string `json:"lines"`  // one emoji line per guess
	Emojis       string   `json:"emojis"` // Lines joined, newline after each
	MistakesMade int      `json:"mistakesMade"`
	Won          bool     `json:"won"`
}

// Summarize is a pure function of the puzzle, the guess history and the result.
func Summarize(p Puzzle, guesses [][]string, mistakesMade int, won bool, loc Locale) Summary {
	t, ok := texts[loc]
	if !ok {
		t = texts[English]
	}
	idx := mistakesMade
	if !won || idx < 0 || idx >= len(t.titles) {
		idx = len(t.titles) - 1
	}

	sum := Summary{
		Title:        t.titles[idx],
		MistakesMade: mistakesMade,
		Won:          won,
		Lines:        make([]string, 0, len(guesses)),
	}
	if won {
		sum.Subtitle = fmt.Sprintf(t.solved, p.Name)
	} else {
		sum.Subtitle = fmt.Sprintf(t.failed, p.Name)
	}

	var b strings.Builder
	for _, guess := range guesses {
		var line strings.Builder
		for _, item := range guess {
			color := unknownColor
			if g, ok := p.GroupOf(item); ok {
				if c, ok := TierColors[g.Difficulty]; ok {
					color = c
				}
			}
			line.WriteString(color)
		}
		sum.Lines = append(sum.Lines, line.String())
		b.WriteString(line.String())
		b.WriteByte('\n')
	}
	sum.Emojis = b.String()
	return sum
}

// Summary returns the results of the session in the given locale.
func (s *Session) Summary(loc Locale) Summary {
	return Summarize(s.Puzzle, s.Guesses, s.MistakesMade(), s.Won, loc)
}
