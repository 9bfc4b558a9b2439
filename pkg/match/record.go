package match

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/abengine/pkg/engine"
)

// The record format is line oriented:
//
//	 ; [Game "tictactoe"]
//	 ; [Max "alpha"]
//	 ; [Min "beta"]
//
//	 Game 1 6f1c...
//	 alpha (max) vs beta (min) from AAAA
//	   1) max AQAA 0 @9
//	      roll min 2 3-0:max
//	 Result: win max

var (
	tagRE     = regexp.MustCompile(`^;\s*\[(\w+)\s+"([^"]*)"\]`)
	headerRE  = regexp.MustCompile(`^Game\s+(\d+)(?:\s+(\S+))?$`)
	playersRE = regexp.MustCompile(`^(.*?) \(max\) vs (.*?) \(min\) from (\S+)$`)
	moveRE    = regexp.MustCompile(`^(\d+)\)\s+(max|min)\s+(\S+)\s+(\S+)\s+@(\d+)$`)
	rollRE    = regexp.MustCompile(`^roll\s+(max|min)\s+(\d+)\s+(\S+)$`)
	resultRE  = regexp.MustCompile(`^Result:\s+(\S+)(?:\s+(max|min))?$`)
)

// ImportText reads a match written by ExportText
func ImportText(r io.Reader) (*Match, error) {
	scanner := bufio.NewScanner(r)
	m := &Match{Games: make([]*Game, 0)}

	var current *Game
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if t := tagRE.FindStringSubmatch(line); t != nil {
			switch strings.ToLower(t[1]) {
			case "game":
				m.Game = t[2]
			case "match":
				m.ID, _ = uuid.Parse(t[2])
			case "max":
				m.Max = t[2]
			case "min":
				m.Min = t[2]
			case "date":
				m.Date = t[2]
			case "comment":
				m.Comment = t[2]
			}
			continue
		}

		if h := headerRE.FindStringSubmatch(line); h != nil {
			n, _ := strconv.Atoi(h[1])
			current = NewGame(n, m.Max, m.Min, "")
			if h[2] != "" {
				id, err := uuid.Parse(h[2])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad game id: %w", lineNo, err)
				}
				current.ID = id
			}
			m.Games = append(m.Games, current)
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("line %d: %q outside of a game", lineNo, line)
		}

		if err := parseGameLine(line, current); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading match record: %w", err)
	}
	return m, nil
}

func parseGameLine(line string, g *Game) error {
	if p := playersRE.FindStringSubmatch(line); p != nil {
		g.Max, g.Min, g.Initial = p[1], p[2], p[3]
		return nil
	}
	if mv := moveRE.FindStringSubmatch(line); mv != nil {
		eval, err := strconv.ParseFloat(mv[4], 64)
		if err != nil {
			return fmt.Errorf("bad evaluation %q: %w", mv[4], err)
		}
		depth, _ := strconv.Atoi(mv[5])
		g.AddMove(parsePlayer(mv[2]), mv[3], eval, depth)
		return nil
	}
	if rl := rollRE.FindStringSubmatch(line); rl != nil {
		roll, _ := strconv.Atoi(rl[2])
		g.AddRoll(parsePlayer(rl[1]), roll, rl[3])
		return nil
	}
	if res := resultRE.FindStringSubmatch(line); res != nil {
		switch res[1] {
		case ResultWin.String():
			g.Result = ResultWin
			g.Winner = parsePlayer(res[2])
		case ResultDraw.String():
			g.Result = ResultDraw
		case ResultPlyLimit.String():
			g.Result = ResultPlyLimit
		default:
			g.Result = ResultInProgress
		}
		return nil
	}
	return fmt.Errorf("unrecognized line %q", line)
}

func parsePlayer(s string) engine.Player {
	switch s {
	case "max":
		return engine.Max
	case "min":
		return engine.Min
	}
	return engine.NoPlayer
}

// ExportText writes a match in the record format read by ImportText
func ExportText(w io.Writer, m *Match) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, " ; [Game %q]\n", m.Game)
	if m.ID != uuid.Nil {
		fmt.Fprintf(bw, " ; [Match %q]\n", m.ID.String())
	}
	fmt.Fprintf(bw, " ; [Max %q]\n", m.Max)
	fmt.Fprintf(bw, " ; [Min %q]\n", m.Min)
	if m.Date != "" {
		fmt.Fprintf(bw, " ; [Date %q]\n", m.Date)
	}
	if m.Comment != "" {
		fmt.Fprintf(bw, " ; [Comment %q]\n", m.Comment)
	}
	fmt.Fprintln(bw)

	for _, g := range m.Games {
		exportGame(bw, g)
	}
	return bw.Flush()
}

func exportGame(w io.Writer, g *Game) {
	fmt.Fprintf(w, " Game %d %s\n", g.Number, g.ID)
	fmt.Fprintf(w, " %s (max) vs %s (min) from %s\n", orDefault(g.Max, "max"), orDefault(g.Min, "min"), g.Initial)

	ply := 0
	for _, a := range g.Actions {
		switch a.Type {
		case ActionMove:
			ply++
			fmt.Fprintf(w, " %3d) %s %s %s @%d\n", ply, a.Player, a.State,
				strconv.FormatFloat(a.Evaluation, 'g', -1, 64), a.Depth)
		case ActionRoll:
			fmt.Fprintf(w, "      roll %s %d %s\n", a.Player, a.Roll, a.State)
		}
	}

	switch g.Result {
	case ResultWin:
		fmt.Fprintf(w, " Result: %s %s\n\n", g.Result, g.Winner)
	default:
		fmt.Fprintf(w, " Result: %s\n\n", g.Result)
	}
}

func orDefault(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
