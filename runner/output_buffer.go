package runner

import (
	"strings"
	"sync"
)

// outputTail is an io.Writer that retains only the most recent bytes written
// to it. fwts summaries are short, but a misbehaving test can flood stdout
// and the whole stream should not end up in memory.
type outputTail struct {
	limit int

	mu      sync.Mutex
	written int64
	buf     []byte
	dropped bool
}

func newOutputTail(limit int) *outputTail {
	if limit <= 0 {
		limit = defaultOutputTailBytes
	}
	return &outputTail{limit: limit}
}

func (o *outputTail) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.written += int64(len(p))
	o.buf = append(o.buf, p...)
	if excess := len(o.buf) - o.limit; excess > 0 {
		o.buf = append(o.buf[:0], o.buf[excess:]...)
		o.dropped = true
	}
	return len(p), nil
}

// String returns the retained output with surrounding whitespace trimmed.
func (o *outputTail) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.TrimSpace(string(o.buf))
}

// Written returns how many bytes were written in total.
func (o *outputTail) Written() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Dropped reports whether the head of the output was discarded.
func (o *outputTail) Dropped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
