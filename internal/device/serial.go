package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const lineBuffer = 32

var errChannelClosed = errors.New("device channel closed")

// SerialChannel is a Channel over a serial port. A background reader splits
// the input into lines so that reads can be bounded by a timer.
type SerialChannel struct {
	port serial.Port
	name string
	log  zerolog.Logger

	writeMu sync.Mutex
	lines   chan string
	done    chan struct{}
	readErr error

	closeOnce sync.Once
}

func OpenSerial(name string, baudRate int, log zerolog.Logger) (*SerialChannel, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	ch := &SerialChannel{
		port:  port,
		name:  name,
		log:   log.With().Str("port", name).Logger(),
		lines: make(chan string, lineBuffer),
		done:  make(chan struct{}),
	}
	go ch.readLoop()

	ch.log.Info().Int("baud_rate", baudRate).Msg("serial port opened")
	return ch, nil
}

func (c *SerialChannel) readLoop() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		select {
		case c.lines <- line:
		default:
			c.log.Warn().Str("line", line).Msg("line buffer full, dropping device line")
		}
	}

	if err := scanner.Err(); err != nil {
		c.readErr = err
	} else {
		c.readErr = errChannelClosed
	}
}

func (c *SerialChannel) WriteByte(b byte) error {
	return c.write([]byte{b})
}

func (c *SerialChannel) WriteLine(line string) error {
	return c.write([]byte(line + "\r\n"))
}

func (c *SerialChannel) write(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.port.Write(p); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}

func (c *SerialChannel) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line := <-c.lines:
		return line, nil
	case <-c.done:
		// Lines read before the port failed are still delivered.
		select {
		case line := <-c.lines:
			return line, nil
		default:
		}
		return "", fmt.Errorf("read %s: %w", c.name, c.readErr)
	case <-timer.C:
		return "", ErrReadTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the port and stops the reader. It is safe to call more
// than once.
func (c *SerialChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.port.Close()
		<-c.done
		c.log.Info().Msg("serial port closed")
	})
	return err
}
