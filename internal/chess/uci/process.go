package uci

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/obslog"
)

const stderrLimit = 2048

// Run launches binaryPath, serves one request and always reaps the process,
// whether the search completed, failed to parse, or ctx expired.
func Run(ctx context.Context, binaryPath string, req Request) (Result, error) {
	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return Result{}, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr := &cappedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return Result{}, fmt.Errorf("start engine: %w", err)
	}

	res, runErr := NewSession(stdin, stdout).Analyze(ctx, req)
	_ = stdin.Close()
	if runErr != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	if runErr != nil {
		if errors.Is(runErr, ErrNoBestMove) && waitErr != nil && len(res.Lines) == 0 {
			return Result{}, fmt.Errorf("%w: %v: %s", ErrEngineExited, waitErr, strings.TrimSpace(stderr.String()))
		}
		return Result{}, runErr
	}
	if waitErr != nil {
		obslog.L().Debug("uci_wait", zap.String("binary", binaryPath), zap.Error(waitErr))
	}
	return res, nil
}

type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Gate bounds how many engine processes run at once.
type Gate struct {
	slots chan struct{}
}

func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}

func (g *Gate) Capacity() int { return cap(g.slots) }

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}

type EngineConfig struct {
	BinaryPath string
	Depth      int
	MaxProcs   int
	Timeout    time.Duration
}

// Engine runs one short-lived process per analysis.
type Engine struct {
	binaryPath string
	depth      int
	timeout    time.Duration
	gate       *Gate
	runner     func(ctx context.Context, binaryPath string, req Request) (Result, error)
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		return nil, fmt.Errorf("binary path required")
	}
	path, err := exec.LookPath(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}
	depth := cfg.Depth
	if depth <= 0 {
		depth = 12
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = computeSearchTimeout(depth)
	}
	return &Engine{
		binaryPath: path,
		depth:      depth,
		timeout:    timeout,
		gate:       NewGate(cfg.MaxProcs),
		runner:     Run,
	}, nil
}

func (e *Engine) Depth() int { return e.depth }

// Analyze searches fen and returns up to multiPV lines ordered by rank.
func (e *Engine) Analyze(ctx context.Context, fen string, multiPV int) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.gate.Acquire(ctx); err != nil {
		return Result{}, fmt.Errorf("wait engine slot: %w", err)
	}
	defer e.gate.Release()

	start := time.Now()
	res, err := e.runner(ctx, e.binaryPath, Request{
		FEN:     fen,
		Depth:   e.depth,
		Options: Options{Threads: 1, HashMB: defaultHashMB, MultiPV: multiPV},
	})
	if err != nil {
		return Result{}, err
	}
	obslog.L().Debug("uci_analysis",
		zap.Int("multipv", multiPV),
		zap.Int("lines", len(res.Lines)),
		zap.String("bestmove", res.BestMove),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func computeSearchTimeout(depth int) time.Duration {
	base := time.Duration(depth) * 300 * time.Millisecond
	if base < 6*time.Second {
		base = 6 * time.Second
	}
	if base > 20*time.Second {
		base = 20 * time.Second
	}
	return base
}
