package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeEngine answers the handshake and replies to go with the given lines.
// When bestmove is empty the stream is closed instead.
func fakeEngine(t *testing.T, info []string, bestmove string) (*Session, <-chan []string) {
	t.Helper()
	toEngineR, toEngineW := io.Pipe()
	fromEngineR, fromEngineW := io.Pipe()
	seen := make(chan []string, 1)

	go func() {
		var cmds []string
		defer func() { seen <- cmds }()
		defer fromEngineW.Close()
		sc := bufio.NewScanner(toEngineR)
		for sc.Scan() {
			cmd := sc.Text()
			cmds = append(cmds, cmd)
			switch {
			case cmd == "uci":
				fmt.Fprintln(fromEngineW, "id name Fake")
				fmt.Fprintln(fromEngineW, "uciok")
			case cmd == "isready":
				fmt.Fprintln(fromEngineW, "readyok")
			case strings.HasPrefix(cmd, "go "):
				for _, l := range info {
					fmt.Fprintln(fromEngineW, l)
				}
				if bestmove == "" {
					return
				}
				fmt.Fprintln(fromEngineW, "bestmove "+bestmove)
			case cmd == "quit":
				return
			}
		}
	}()
	t.Cleanup(func() { toEngineW.Close() })
	return NewSession(toEngineW, fromEngineR), seen
}

func TestSessionAnalyzeMultiPV(t *testing.T) {
	s, seen := fakeEngine(t, []string{
		"info depth 1 multipv 1 score cp 10 pv d2d4",
		"info depth 2 multipv 2 score cp -5 nodes 10 pv g1f3 d7d5",
		"info depth 2 multipv 1 score cp 31 pv e2e4 e7e5",
		"info depth 2 currmove e2e4 currmovenumber 1",
		"info depth 2 multipv 3 score mate 2 pv d1h5",
	}, "e2e4 ponder e7e5")

	res, err := s.Analyze(context.Background(), Request{FEN: "startpos", Depth: 2, Options: Options{MultiPV: 3}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.BestMove != "e2e4" {
		t.Fatalf("bestmove = %q", res.BestMove)
	}
	if len(res.Lines) != 3 {
		t.Fatalf("want 3 lines, got %+v", res.Lines)
	}
	if res.Lines[0].Move != "e2e4" || res.Lines[0].Score != 31 {
		t.Fatalf("later multipv 1 line should win: %+v", res.Lines[0])
	}
	if res.Lines[1].Move != "g1f3" || res.Lines[2].Score != MateValue-2 {
		t.Fatalf("unexpected lines %+v", res.Lines)
	}

	cmds := <-seen
	joined := strings.Join(cmds, "\n")
	for _, want := range []string{
		"setoption name Threads value 1",
		"setoption name Hash value 16",
		"setoption name MultiPV value 3",
		"position startpos",
		"go depth 2",
		"quit",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing command %q in %v", want, cmds)
		}
	}
}

func TestSessionStreamEndsWithoutBestMove(t *testing.T) {
	s, _ := fakeEngine(t, []string{"info depth 1 score cp 3 pv e2e4"}, "")
	_, err := s.Analyze(context.Background(), Request{FEN: "startpos", Depth: 1})
	if !errors.Is(err, ErrNoBestMove) {
		t.Fatalf("expected ErrNoBestMove, got %v", err)
	}
}

func TestSessionRespectsContext(t *testing.T) {
	toEngineR, toEngineW := io.Pipe()
	go io.Copy(io.Discard, toEngineR)
	silentR, silentW := io.Pipe()
	defer silentW.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewSession(toEngineW, silentR).Analyze(ctx, Request{Depth: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		kind, val string
		want      int
	}{
		{"cp", "23", 23},
		{"cp", "-140", -140},
		{"mate", "3", 99997},
		{"mate", "-2", -99998},
	}
	for _, c := range cases {
		got, ok := ParseScore(c.kind, c.val)
		if !ok || got != c.want {
			t.Fatalf("ParseScore(%s %s) = %d,%v want %d", c.kind, c.val, got, ok, c.want)
		}
	}
	if _, ok := ParseScore("lowerbound", "1"); ok {
		t.Fatalf("unknown kind accepted")
	}
	m1, _ := ParseScore("mate", "1")
	m5, _ := ParseScore("mate", "5")
	if !(m1 > m5 && m5 > 5000) {
		t.Fatalf("mate ordering broken: %d %d", m1, m5)
	}
}

func TestParseInfoRequiresScoreAndPV(t *testing.T) {
	if _, ok := parseInfo("info depth 5 currmove e2e4"); ok {
		t.Fatalf("line without pv accepted")
	}
	if _, ok := parseInfo("info depth 5 pv e2e4"); ok {
		t.Fatalf("line without score accepted")
	}
	l, ok := parseInfo("info depth 9 seldepth 12 multipv 2 score cp 17 nodes 900 pv c2c4 e7e5 b1c3")
	if !ok || l.MultiPV != 2 || l.Move != "c2c4" || len(l.Principal) != 3 {
		t.Fatalf("unexpected %+v", l)
	}
}

func TestNormalizeToWhite(t *testing.T) {
	if NormalizeToWhite(50, true) != 50 || NormalizeToWhite(50, false) != -50 {
		t.Fatalf("normalization wrong")
	}
}

func TestGateBoundsConcurrency(t *testing.T) {
	g := NewGate(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); err == nil {
		t.Fatalf("second acquire should block until ctx expires")
	}
	g.Release()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if NewGate(0).Capacity() < 2 {
		t.Fatalf("default capacity too small")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

const scriptHandshake = `while read line; do
  case "$line" in
    uci) echo "uciok";;
    isready) echo "readyok";;
`

func TestRunProcess(t *testing.T) {
	path := writeScript(t, scriptHandshake+`    go*) echo "info depth 1 multipv 1 score cp 31 pv e2e4 e7e5"; echo "bestmove e2e4";;
    quit) exit 0;;
  esac
done
`)
	res, err := Run(context.Background(), path, Request{FEN: "startpos", Depth: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.BestMove != "e2e4" || len(res.Lines) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunProcessExitWithoutOutput(t *testing.T) {
	path := writeScript(t, scriptHandshake+`    go*) exit 3;;
  esac
done
`)
	_, err := Run(context.Background(), path, Request{FEN: "startpos", Depth: 1})
	if !errors.Is(err, ErrEngineExited) {
		t.Fatalf("expected ErrEngineExited, got %v", err)
	}
}

func TestEngineUsesRunner(t *testing.T) {
	var got Request
	e := &Engine{
		binaryPath: "fake",
		depth:      7,
		timeout:    time.Second,
		gate:       NewGate(1),
		runner: func(_ context.Context, _ string, req Request) (Result, error) {
			got = req
			return Result{BestMove: "e2e4"}, nil
		},
	}
	if _, err := e.Analyze(context.Background(), "startpos", 3); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Depth != 7 || got.Options.MultiPV != 3 || got.Options.Threads != 1 {
		t.Fatalf("unexpected request %+v", got)
	}
	if computeSearchTimeout(1) != 6*time.Second || computeSearchTimeout(100) != 20*time.Second {
		t.Fatalf("timeout clamp wrong")
	}
}
