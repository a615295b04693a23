package logging

import "sync"

const defaultBufferLines = 1000

// Buffer keeps the most recent log lines in memory
type Buffer struct {
	lines []string
	max   int
	mu    sync.Mutex
}

// NewBuffer creates a buffer holding up to max lines (1000 when max <= 0)
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = defaultBufferLines
	}
	return &Buffer{
		lines: make([]string, 0, max),
		max:   max,
	}
}

func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, string(p))
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}

	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	logs := make([]string, len(b.lines))
	copy(logs, b.lines)
	return logs
}
