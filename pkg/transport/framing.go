package transport

import (
	"bytes"
	"sync"
)

// LineFramer splits an inbound byte stream into newline-delimited records.
// Chunks may end anywhere, including inside a multi-byte character; the
// unterminated tail is kept until a later chunk completes it.
type LineFramer struct {
	mu         sync.Mutex
	buf        []byte
	maxLine    int
	discarding bool
	dropped    int
}

// NewLineFramer returns a framer that drops records longer than maxLine
// bytes. A maxLine of zero or less means no limit.
func NewLineFramer(maxLine int) *LineFramer {
	return &LineFramer{maxLine: maxLine}
}

// Feed appends chunk and returns every complete, non-blank record it
// finished, in arrival order, without the delimiter.
func (f *LineFramer) Feed(chunk []byte) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lines [][]byte
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			f.buffer(chunk)
			break
		}

		segment := chunk[:i]
		chunk = chunk[i+1:]

		if f.discarding {
			f.discarding = false
			continue
		}

		line := append(f.buf, segment...)
		f.buf = nil
		if f.maxLine > 0 && len(line) > f.maxLine {
			f.dropped++
			continue
		}

		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

func (f *LineFramer) buffer(chunk []byte) {
	if f.discarding {
		return
	}
	f.buf = append(f.buf, chunk...)
	if f.maxLine > 0 && len(f.buf) > f.maxLine {
		f.buf = nil
		f.discarding = true
		f.dropped++
	}
}

// Reset discards any partial record.
func (f *LineFramer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = nil
	f.discarding = false
}

// Buffered returns the size of the incomplete tail.
func (f *LineFramer) Buffered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf)
}

// Dropped returns how many oversized records were discarded.
func (f *LineFramer) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
