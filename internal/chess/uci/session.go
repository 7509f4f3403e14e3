package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/obslog"
)

const (
	defaultHashMB    = 16
	defaultThreads   = 1
	defaultHandshake = 4 * time.Second

	// MateValue is the magnitude assigned to a forced mate before the
	// distance to mate is subtracted.
	MateValue = 100000
)

var (
	ErrNoBestMove   = errors.New("uci: stream ended without bestmove")
	ErrEngineExited = errors.New("uci: engine exited without output")
)

type Options struct {
	Threads int
	HashMB  int
	MultiPV int
}

type Request struct {
	FEN     string
	Depth   int
	Options Options
}

// Line is one principal variation reported by the engine. Score is from the
// side to move's perspective, as the engine reports it.
type Line struct {
	MultiPV   int
	Move      string
	Score     int
	Principal []string
}

type Result struct {
	Lines    []Line
	BestMove string
}

// Session speaks the protocol over any writer/reader pair. One Session
// serves one request.
type Session struct {
	w  io.Writer
	r  *bufio.Reader
	mu sync.Mutex
}

func NewSession(w io.Writer, r io.Reader) *Session {
	return &Session{w: w, r: bufio.NewReader(r)}
}

// Analyze runs the full handshake and one fixed-depth search. The stream is
// consumed up to and including the bestmove line, after which quit is sent.
func (s *Session) Analyze(ctx context.Context, req Request) (Result, error) {
	if req.Depth <= 0 {
		return Result{}, fmt.Errorf("search depth must be > 0: %d", req.Depth)
	}
	opt := withDefaults(req.Options)

	if err := s.handshake(ctx, opt); err != nil {
		return Result{}, err
	}
	if err := s.send(buildPositionCommand(req.FEN)); err != nil {
		return Result{}, fmt.Errorf("send position: %w", err)
	}
	if err := s.send("go depth " + strconv.Itoa(req.Depth) + "\n"); err != nil {
		return Result{}, fmt.Errorf("send go: %w", err)
	}

	lines := make(map[int]Line)
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Result{Lines: collapseLines(lines)}, ErrNoBestMove
			}
			return Result{}, fmt.Errorf("read line: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "info ") && strings.Contains(line, " pv "):
			if l, ok := parseInfo(line); ok {
				lines[l.MultiPV] = l
			}
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			res := Result{Lines: collapseLines(lines)}
			if len(parts) >= 2 {
				res.BestMove = parts[1]
			}
			if err := s.send("quit\n"); err != nil {
				obslog.L().Debug("uci_quit_failed", zap.Error(err))
			}
			return res, nil
		}
	}
}

func withDefaults(opt Options) Options {
	if opt.Threads <= 0 {
		opt.Threads = defaultThreads
	}
	if opt.HashMB <= 0 {
		opt.HashMB = defaultHashMB
	}
	if opt.MultiPV <= 0 {
		opt.MultiPV = 1
	}
	return opt
}

func (s *Session) handshake(ctx context.Context, opt Options) error {
	hsCtx, cancel := context.WithTimeout(ctx, defaultHandshake)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(hsCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", opt.Threads),
		fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB),
		fmt.Sprintf("setoption name MultiPV value %d\n", opt.MultiPV),
		"isready\n",
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if err := s.awaitToken(hsCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func buildPositionCommand(fen string) string {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

// parseInfo extracts one principal variation from an info line.
func parseInfo(line string) (Line, bool) {
	parts := strings.Fields(line)
	var (
		out      = Line{MultiPV: 1}
		scoreSet bool
		pvIdx    = -1
	)
	for i := 0; i < len(parts) && pvIdx < 0; i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					out.MultiPV = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				if v, ok := ParseScore(parts[i+1], parts[i+2]); ok {
					out.Score = v
					scoreSet = true
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
		}
	}
	if !scoreSet || pvIdx < 0 || pvIdx >= len(parts) {
		return Line{}, false
	}
	out.Principal = append([]string(nil), parts[pvIdx:]...)
	out.Move = out.Principal[0]
	return out, true
}

// ParseScore converts a score kind/value pair. Mates become MateValue-N for
// the side to move mating, and its negative mirror otherwise, so shorter
// mates outrank longer ones and any mate outranks any centipawn score.
func ParseScore(kind, value string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	switch kind {
	case "cp":
		return n, true
	case "mate":
		if n > 0 {
			return MateValue - n, true
		}
		return -MateValue - n, true
	default:
		return 0, false
	}
}

// NormalizeToWhite flips a side-to-move score so positive favours White.
func NormalizeToWhite(score int, whiteToMove bool) int {
	if whiteToMove {
		return score
	}
	return -score
}

func collapseLines(m map[int]Line) []Line {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Line, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.r.ReadString('\n')
		if err != nil && line != "" && errors.Is(err, io.EOF) {
			err = nil
		}
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
