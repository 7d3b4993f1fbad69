package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger hex-dumps packets crossing a link.
type RawLogger interface {
	// Log writes one line. in=true means towards the bridge (controller or USB/IP
	// client to us), in=false means from the bridge.
	Log(in bool, data []byte)
	// With returns a logger that tags its lines with source.
	With(source string) RawLogger
}

type rawLogger struct {
	w      io.Writer
	mu     *sync.Mutex
	source string
}

// NewRaw creates a new RawLogger. If writer is nil, returns a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w, mu: &sync.Mutex{}}
}

func (r *rawLogger) With(source string) RawLogger {
	return &rawLogger{w: r.w, mu: r.mu, source: source}
}

func (r *rawLogger) Log(in bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}
	dir := "->"
	if in {
		dir = "<-"
	}
	source := r.source
	if source == "" {
		source = "raw"
	}
	line := fmt.Sprintf("%s %s %s %d bytes: % x\n",
		time.Now().Format("15:04:05.000"),
		source,
		dir,
		len(data),
		data)

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
