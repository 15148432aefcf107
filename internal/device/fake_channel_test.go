package device

import (
	"context"
	"sync"
	"time"
)

// fakeChannel replays scripted device lines and records what the host wrote.
type fakeChannel struct {
	mu      sync.Mutex
	bytes   []byte
	written []string
	lines   chan string
	closed  bool
}

func newFakeChannel(lines ...string) *fakeChannel {
	ch := &fakeChannel{lines: make(chan string, len(lines)+8)}
	for _, l := range lines {
		ch.lines <- l
	}
	return ch
}

func (f *fakeChannel) WriteByte(b byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bytes = append(f.bytes, b)
	return nil
}

func (f *fakeChannel) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, line)
	return nil
}

func (f *fakeChannel) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case line := <-f.lines:
		return line, nil
	case <-timer.C:
		return "", ErrReadTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) sentBytes() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.bytes)
}

func (f *fakeChannel) sentLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}
