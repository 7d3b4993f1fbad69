package status

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/ogxbridge/ogxbridge/engine"
)

// Terminal redraws the two-line summary in place.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	drawn bool
}

// NewTerminal returns a panel on stdout, or false if stdout is not a terminal.
func NewTerminal() (*Terminal, bool) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, false
	}
	return NewTerminalWriter(os.Stdout), true
}

func NewTerminalWriter(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) Show(s engine.Status) {
	lines := s.Lines()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.drawn {
		// cursor up two lines
		_, _ = io.WriteString(t.w, "\x1b[2A")
	}
	_, _ = fmt.Fprintf(t.w, "\r\x1b[2K%-16s %s\n\r\x1b[2K%-16s %s\n",
		lines[0], s.Identity,
		lines[1], s.Phase)
	t.drawn = true
}
