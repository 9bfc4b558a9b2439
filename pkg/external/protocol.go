// Package external implements a line-oriented TCP protocol for driving the
// engine from other programs.
//
// Protocol overview:
// - Server listens on a TCP port
// - Client connects and sends one command per line
// - Commands include: search, iterate, eval, set, version, exit
// - Positions use the diagram or key syntax of the selected game
// - Responses other than help are a single line; errors start with "Error:"
package external

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/abengine/internal/games"
	"github.com/yourusername/abengine/pkg/engine"
)

// Server implements the external protocol server.
type Server struct {
	engine   *engine.Engine
	listener net.Listener
	mu       sync.Mutex
	running  bool
	options  ServerOptions
	conns    sync.WaitGroup
	cancel   context.CancelFunc
}

// ServerOptions configures the external protocol server. Game, Depth and
// Timeout are the initial settings of every session.
type ServerOptions struct {
	Addr          string        // TCP address to listen on
	Game          string        // Initial game
	Depth         int           // Initial search depth
	MaxDepth      int           // Deepest search a session may ask for
	Timeout       time.Duration // Initial iterative deepening budget (0 = none)
	PromptEnabled bool          // Send prompts after responses
	Logger        *slog.Logger
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Addr:          ":1234",
		Game:          "tictactoe",
		Depth:         4,
		MaxDepth:      12,
		Timeout:       5 * time.Second,
		PromptEnabled: true,
	}
}

// NewServer creates a new external protocol server.
func NewServer(eng *engine.Engine, opts ServerOptions) *Server {
	def := DefaultServerOptions()
	if opts.Addr == "" {
		opts.Addr = def.Addr
	}
	if opts.Game == "" {
		opts.Game = def.Game
	}
	if opts.Depth <= 0 {
		opts.Depth = def.Depth
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		engine:  eng,
		options: opts,
	}
}

// Start begins listening for connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.options.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.options.Addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listener = listener
	s.cancel = cancel
	s.running = true

	s.options.Logger.Info("external protocol listening", slog.String("addr", listener.Addr().String()))
	go s.acceptLoop(ctx, listener)

	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops the server, cancels running searches and waits for the open
// sessions to end.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	err := s.listener.Close()
	s.mu.Unlock()

	s.conns.Wait()
	return err
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.options.Logger.Warn("accept failed", slog.Any("error", err))
			continue
		}

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.conns.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// session is the per-connection state changed by "set"
type session struct {
	game    games.Game
	depth   int
	timeout time.Duration
}

func (s *Server) sessionGame() (games.Game, error) {
	return games.Lookup(s.options.Game)
}

// handleConnection handles a single client connection.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Closing the connection unblocks the reader on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	g, err := s.sessionGame()
	if err != nil {
		fmt.Fprintf(conn, "Error: %v\n", err)
		return
	}
	sess := &session{game: g, depth: s.options.Depth, timeout: s.options.Timeout}
	logger := s.options.Logger.With(slog.String("remote", conn.RemoteAddr().String()))
	logger.Debug("session opened")

	reader := bufio.NewReader(conn)
	if s.options.PromptEnabled {
		conn.Write([]byte("> "))
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			logger.Debug("session closed", slog.Any("reason", err))
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		response := s.processCommand(ctx, sess, line)
		conn.Write([]byte(response))

		if command := strings.ToLower(strings.Fields(line)[0]); command == "exit" || command == "quit" {
			return
		}
		if s.options.PromptEnabled {
			conn.Write([]byte("> "))
		}
	}
}

// processCommand processes a single command and returns the response.
func (s *Server) processCommand(ctx context.Context, sess *session, cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "Error: empty command\n"
	}

	command := strings.ToLower(parts[0])
	arg := strings.TrimSpace(strings.TrimPrefix(cmd, parts[0]))

	switch command {
	case "version":
		return "abengine external protocol 1.0\n"

	case "help":
		return helpResponse()

	case "exit", "quit":
		return "Goodbye\n"

	case "set":
		return s.handleSet(sess, parts[1:])

	case "eval", "evaluation":
		return s.handleEval(sess, arg)

	case "search":
		return s.handleSearch(ctx, sess, arg, false)

	case "iterate":
		return s.handleSearch(ctx, sess, arg, true)

	default:
		return fmt.Sprintf("Error: unknown command '%s'\n", command)
	}
}

// helpResponse returns help text on one line per command.
func helpResponse() string {
	return `Available commands:
  version             - Show version information
  help                - Show this help
  set <opt> <value>   - Set game, depth or timeout
  eval [position]     - Static evaluation of a position
  search [position]   - Best move at the session depth
  iterate [position]  - Best move by iterative deepening within the timeout
  exit                - Close connection
`
}

// handleSet handles the set command.
func (s *Server) handleSet(sess *session, args []string) string {
	if len(args) < 2 {
		return "Error: set requires option and value\n"
	}

	option := strings.ToLower(args[0])
	value := args[1]

	switch option {
	case "game":
		g, err := games.Lookup(value)
		if err != nil {
			return fmt.Sprintf("Error: %v\n", err)
		}
		sess.game = g
		return fmt.Sprintf("game set to %s\n", g.Name)

	case "depth", "plies":
		depth, err := strconv.Atoi(value)
		if err != nil || depth < 1 || depth > s.options.MaxDepth {
			return fmt.Sprintf("Error: depth must be 1-%d\n", s.options.MaxDepth)
		}
		sess.depth = depth
		return fmt.Sprintf("depth set to %d\n", depth)

	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return "Error: timeout must be a non-negative duration such as 2s\n"
		}
		sess.timeout = d
		return fmt.Sprintf("timeout set to %v\n", d)

	default:
		return fmt.Sprintf("Error: unknown option '%s'\n", option)
	}
}

// handleEval returns the static evaluation of a position.
func (s *Server) handleEval(sess *session, position string) string {
	state, err := sess.game.Position(position)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	v, err := state.Evaluate(0, nil)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	return fmt.Sprintf("%.6f %s\n", v, state.Turn())
}

// handleSearch returns "<best move key> <evaluation> <depth> <leaves>",
// or "cannot move" for a finished position.
func (s *Server) handleSearch(ctx context.Context, sess *session, position string, iterative bool) string {
	state, err := sess.game.Position(position)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	var r *engine.SearchResult
	if iterative && sess.depth > 1 {
		r, err = s.engine.IterativeSearchTimeout(ctx, state, 1, sess.depth, sess.timeout)
	} else {
		r, err = s.engine.Search(ctx, state, sess.depth)
	}
	switch {
	case errors.Is(err, engine.ErrNoNeighbors):
		return "cannot move\n"
	case err != nil:
		return fmt.Sprintf("Error: %v\n", err)
	}

	next := r.NextMove()
	if next == nil {
		return "cannot move\n"
	}
	depth := r.MaxDepth
	if r.DepthReached > 0 {
		depth = r.DepthReached
	}
	return fmt.Sprintf("%s %.6f %d %d\n", next.Key(), r.Evaluation, depth, r.Leaves)
}
