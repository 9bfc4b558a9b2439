package match

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/abengine/pkg/engine"
)

// Summary aggregates finished games
type Summary struct {
	Games      int            `json:"games"`
	MaxWins    int            `json:"max_wins"`
	MinWins    int            `json:"min_wins"`
	Draws      int            `json:"draws"`
	Unfinished int            `json:"unfinished"`
	Wins       map[string]int `json:"wins"` // By contestant name

	MeanPlies   float64       `json:"mean_plies"`
	StdDevPlies float64       `json:"stddev_plies"`
	MeanElapsed time.Duration `json:"mean_elapsed"`
}

// Summarize counts results by side and by contestant
func Summarize(games []*Game) Summary {
	s := Summary{Games: len(games), Wins: make(map[string]int)}
	if len(games) == 0 {
		return s
	}

	plies := make([]float64, len(games))
	var elapsed time.Duration
	for i, g := range games {
		switch g.Result {
		case ResultWin:
			switch g.Winner {
			case engine.Max:
				s.MaxWins++
			case engine.Min:
				s.MinWins++
			}
			s.Wins[g.WinnerName()]++
		case ResultDraw:
			s.Draws++
		default:
			s.Unfinished++
		}
		plies[i] = float64(g.Plies())
		elapsed += g.Elapsed
	}

	if len(plies) > 1 {
		s.MeanPlies, s.StdDevPlies = stat.MeanStdDev(plies, nil)
	} else {
		s.MeanPlies = plies[0]
	}
	s.MeanElapsed = elapsed / time.Duration(len(games))
	return s
}

// Summary aggregates the games of the match
func (m *Match) Summary() Summary {
	return Summarize(m.Games)
}
