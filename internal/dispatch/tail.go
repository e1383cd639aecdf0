package dispatch

import (
	"bytes"
	"strings"
	"sync"
)

// maxTailLineBytes caps how much of a single line the tail retains. The
// tail feeds failure reports, not transcripts; a multi-megabyte line is
// truncated rather than held in memory.
const maxTailLineBytes = 4096

// tailBuffer keeps the last n lines written to it. Safe for concurrent
// writers; both output pumps feed the same buffer.
type tailBuffer struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (b *tailBuffer) Add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.n {
		b.lines = b.lines[len(b.lines)-b.n:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

// lineWriter splits a byte stream into lines for a tailBuffer. Each pump
// owns one, so partial lines from stdout and stderr never interleave.
type lineWriter struct {
	tail    *tailBuffer
	partial []byte
}

func newLineWriter(tail *tailBuffer) *lineWriter {
	return &lineWriter{tail: tail}
}

// Write never returns an error: the pump must be able to keep draining
// its pipe no matter what the stream contains.
func (lw *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			lw.buffer(p)
			return n, nil
		}
		lw.buffer(p[:i])
		lw.emit()
		p = p[i+1:]
	}
}

// buffer appends to the pending line, truncating past maxTailLineBytes.
func (lw *lineWriter) buffer(p []byte) {
	room := maxTailLineBytes - len(lw.partial)
	if room <= 0 {
		return
	}
	if len(p) > room {
		p = p[:room]
	}
	lw.partial = append(lw.partial, p...)
}

// emit records the pending line, minus a trailing carriage return.
func (lw *lineWriter) emit() {
	line := lw.partial
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	lw.tail.Add(string(line))
	lw.partial = lw.partial[:0]
}

// flush records a final line that ended without a newline.
func (lw *lineWriter) flush() {
	if len(lw.partial) > 0 {
		lw.emit()
	}
}
