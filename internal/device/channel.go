package device

import (
	"context"
	"errors"
	"time"
)

var ErrReadTimeout = errors.New("device read timed out")

// Channel is the byte-oriented link to one lane peripheral. Gate commands are
// single bytes; the payment sub-protocol uses text lines.
type Channel interface {
	WriteByte(b byte) error
	WriteLine(line string) error
	// ReadLine returns the next line without its terminator. It fails with
	// ErrReadTimeout when no line arrives in time and with the context error
	// when ctx is done first.
	ReadLine(ctx context.Context, timeout time.Duration) (string, error)
	Close() error
}
