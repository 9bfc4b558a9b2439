// Package match plays engines against each other over the bundled games and
// records the games in a plain-text match format.
package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/abengine/pkg/engine"
)

// Match is a series of games between two contestants
type Match struct {
	ID      uuid.UUID
	Game    string // Name of the game played
	Max     string // Contestant playing Max in odd-numbered games
	Min     string // Contestant playing Min in odd-numbered games
	Date    string // YYYY-MM-DD
	Comment string
	Games   []*Game
}

// Game is one played game
type Game struct {
	ID      uuid.UUID
	Number  int    // 1-indexed
	Max     string // Contestant playing Max
	Min     string // Contestant playing Min
	Initial string // Key of the starting position
	Actions []Action
	Winner  engine.Player // NoPlayer for draws and unfinished games
	Result  GameResult
	Final   engine.State // Nil for imported games
	Elapsed time.Duration
}

// ActionType represents the type of game action
type ActionType int

const (
	ActionRoll ActionType = iota // Chance outcome drawn
	ActionMove                   // Decision by the player to move
)

// Action is a single step of a game
type Action struct {
	Type       ActionType
	Player     engine.Player // Who rolled or moved
	Roll       int           // Branch index drawn (ActionRoll)
	State      string        // Key of the position after the action
	Evaluation float64       // Search evaluation behind a move
	Depth      int           // Depth the deciding search reached
}

// GameResult indicates how a game ended
type GameResult int

const (
	ResultInProgress GameResult = iota // Not finished
	ResultWin                          // Winner set
	ResultDraw                         // Terminal without a winner
	ResultPlyLimit                     // Stopped by PlayOptions.MaxPlies
)

func (r GameResult) String() string {
	switch r {
	case ResultWin:
		return "win"
	case ResultDraw:
		return "draw"
	case ResultPlyLimit:
		return "ply-limit"
	}
	return "in-progress"
}

// NewMatch creates an empty match
func NewMatch(game, maxName, minName string) *Match {
	return &Match{
		ID:    uuid.New(),
		Game:  game,
		Max:   maxName,
		Min:   minName,
		Date:  time.Now().Format(time.DateOnly),
		Games: make([]*Game, 0),
	}
}

// NewGame creates a game starting from initial
func NewGame(number int, maxName, minName, initial string) *Game {
	return &Game{
		ID:      uuid.New(),
		Number:  number,
		Max:     maxName,
		Min:     minName,
		Initial: initial,
		Actions: make([]Action, 0),
		Result:  ResultInProgress,
	}
}

// AddRoll records a chance outcome
func (g *Game) AddRoll(player engine.Player, roll int, state string) {
	g.Actions = append(g.Actions, Action{
		Type:   ActionRoll,
		Player: player,
		Roll:   roll,
		State:  state,
	})
}

// AddMove records a decision
func (g *Game) AddMove(player engine.Player, state string, eval float64, depth int) {
	g.Actions = append(g.Actions, Action{
		Type:       ActionMove,
		Player:     player,
		State:      state,
		Evaluation: eval,
		Depth:      depth,
	})
}

// Moves returns the keys of the positions reached by decisions
func (g *Game) Moves() []string {
	var out []string
	for _, a := range g.Actions {
		if a.Type == ActionMove {
			out = append(out, a.State)
		}
	}
	return out
}

// Plies counts decisions
func (g *Game) Plies() int {
	return len(g.Moves())
}

// WinnerName returns the contestant who won, or ""
func (g *Game) WinnerName() string {
	switch g.Winner {
	case engine.Max:
		return g.Max
	case engine.Min:
		return g.Min
	}
	return ""
}
