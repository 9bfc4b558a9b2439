package external

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/abengine/internal/games/tictactoe"
	"github.com/yourusername/abengine/pkg/engine"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.MaxScore, opts.MinScore = 1, -1
	opts.DieEarly = true
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	so := DefaultServerOptions()
	so.Addr = "127.0.0.1:0"
	so.Depth = 2
	so.PromptEnabled = false
	so.Logger = opts.Logger
	return NewServer(eng, so)
}

func newSession(t *testing.T, s *Server) *session {
	t.Helper()
	g, err := s.sessionGame()
	if err != nil {
		t.Fatalf("sessionGame: %v", err)
	}
	return &session{game: g, depth: s.options.Depth, timeout: s.options.Timeout}
}

func TestProcessCommand(t *testing.T) {
	s := testServer(t)
	sess := newSession(t, s)
	ctx := context.Background()

	win, _ := tictactoe.FromDiagram("XXX/OO./...")

	tests := []struct {
		cmd  string
		want string
	}{
		{"version", "abengine external protocol 1.0\n"},
		{"VERSION", "abengine external protocol 1.0\n"},
		{"eval XXX/OO./...", "1.000000 min\n"},
		{"search XX./OO./...", win.Key() + " 1.000000 2 "},
		{"search XXX/OO./...", "cannot move\n"},
		{"frobnicate", "Error: unknown command 'frobnicate'\n"},
		{"set depth 0", "Error: depth must be 1-12\n"},
		{"set", "Error: set requires option and value\n"},
		{"search not-a-board!", "Error:"},
	}
	for _, tc := range tests {
		got := s.processCommand(ctx, sess, tc.cmd)
		if !strings.HasPrefix(got, tc.want) {
			t.Errorf("processCommand(%q) = %q, want prefix %q", tc.cmd, got, tc.want)
		}
	}
}

func TestSetCommands(t *testing.T) {
	s := testServer(t)
	sess := newSession(t, s)

	if got := s.handleSet(sess, []string{"depth", "5"}); got != "depth set to 5\n" {
		t.Errorf("set depth = %q", got)
	}
	if sess.depth != 5 {
		t.Errorf("depth = %d, want 5", sess.depth)
	}
	if got := s.handleSet(sess, []string{"game", "Connect4"}); got != "game set to connect4\n" {
		t.Errorf("set game = %q", got)
	}
	if got := s.handleSet(sess, []string{"game", "chess"}); !strings.HasPrefix(got, "Error:") {
		t.Errorf("set unknown game = %q", got)
	}
	if got := s.handleSet(sess, []string{"timeout", "250ms"}); got != "timeout set to 250ms\n" {
		t.Errorf("set timeout = %q", got)
	}
	if got := s.handleSet(sess, []string{"timeout", "-1s"}); !strings.HasPrefix(got, "Error:") {
		t.Errorf("negative timeout = %q", got)
	}
}

func TestServerSession(t *testing.T) {
	s := testServer(t)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	reader := bufio.NewReader(conn)

	send := func(line string) string {
		t.Helper()
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		resp, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString: %v", err)
		}
		return resp
	}

	if got := send("set depth 3"); got != "depth set to 3\n" {
		t.Errorf("set depth = %q", got)
	}
	if got := send("iterate XX./OO./..."); !strings.Contains(got, " 1.000000 ") {
		t.Errorf("iterate = %q, want a winning evaluation", got)
	}
	if got := send("exit"); got != "Goodbye\n" {
		t.Errorf("exit = %q", got)
	}
	if _, err := reader.ReadString('\n'); err != io.EOF {
		t.Errorf("connection should be closed after exit, got %v", err)
	}
}

func TestStopClosesSessions(t *testing.T) {
	s := testServer(t)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.Write([]byte("version\n"))
	bufio.NewReader(conn).ReadString('\n')

	done := make(chan error, 1)
	go func() { done <- s.Stop() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a session was open")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
}
