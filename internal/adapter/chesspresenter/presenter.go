package chesspresenter

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Presenter writes formatted blocks to an output stream, one block at a time.
type Presenter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

func (p *Presenter) Show(block string) error {
	if p == nil || p.out == nil {
		return nil
	}
	text := strings.TrimSpace(block)
	if text == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "%s\n\n", text)
	return err
}
