package settlement

import (
	"strings"

	"github.com/muhvmmv/Tyche-Betting/internal/feed"
)

// Result is the final outcome of a finished fixture.
type Result int

const (
	ResultHome Result = iota + 1
	ResultAway
	ResultDraw
)

func (r Result) String() string {
	switch r {
	case ResultHome:
		return "home"
	case ResultAway:
		return "away"
	case ResultDraw:
		return "draw"
	default:
		return "unknown"
	}
}

// ResultOf compares final scores.
func ResultOf(f feed.Fixture) Result {
	switch {
	case f.HomeScore > f.AwayScore:
		return ResultHome
	case f.AwayScore > f.HomeScore:
		return ResultAway
	default:
		return ResultDraw
	}
}

// Pick is a wager selection mapped onto a side of the fixture.
type Pick int

const (
	PickUnmatched Pick = iota
	PickHome
	PickAway
	PickDraw
)

// Wins reports whether the pick matches the result. PickUnmatched never wins.
func (p Pick) Wins(r Result) bool {
	switch p {
	case PickHome:
		return r == ResultHome
	case PickAway:
		return r == ResultAway
	case PickDraw:
		return r == ResultDraw
	default:
		return false
	}
}

// Sides names the two teams of a fixture as one source reports them.
type Sides struct {
	Home string
	Away string
}

// NormalizeSelection maps a raw selection onto a side. Generic labels
// (home, away, draw, x) are tried first, then each set of team names in
// order; comparisons are case-insensitive on trimmed input.
func NormalizeSelection(selection string, names ...Sides) Pick {
	sel := strings.ToLower(strings.TrimSpace(selection))
	switch sel {
	case "":
		return PickUnmatched
	case "home":
		return PickHome
	case "away":
		return PickAway
	case "draw", "x":
		return PickDraw
	}
	for _, n := range names {
		home := strings.ToLower(strings.TrimSpace(n.Home))
		away := strings.ToLower(strings.TrimSpace(n.Away))
		if home != "" && sel == home && home != away {
			return PickHome
		}
		if away != "" && sel == away && home != away {
			return PickAway
		}
	}
	return PickUnmatched
}
