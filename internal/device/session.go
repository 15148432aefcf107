package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	cmdClose byte = '0'
	cmdOpen  byte = '1'
	cmdAlert byte = '2'

	readyLine          = "READY"
	doneToken          = "DONE"
	insufficientMarker = "I"
)

var (
	ErrHandshakeTimeout    = errors.New("payment handshake timed out")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type HandshakeState string

const (
	StateIdle          HandshakeState = "IDLE"
	StateAwaitingReady HandshakeState = "AWAITING_READY"
	StateBalanceSent   HandshakeState = "BALANCE_SENT"
	StateAwaitingDone  HandshakeState = "AWAITING_DONE"
	StateComplete      HandshakeState = "COMPLETE"
	StateTimedOut      HandshakeState = "TIMED_OUT"
)

type SessionConfig struct {
	GateDwell    time.Duration
	ReadyTimeout time.Duration
	DoneTimeout  time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		GateDwell:    5 * time.Second,
		ReadyTimeout: 5 * time.Second,
		DoneTimeout:  10 * time.Second,
	}
}

// Session drives one lane peripheral over its channel. It owns the channel
// and must not be shared between lanes.
type Session struct {
	ch  Channel
	cfg SessionConfig
	log zerolog.Logger

	mu    sync.Mutex
	state HandshakeState
}

func NewSession(ch Channel, cfg SessionConfig, log zerolog.Logger) *Session {
	return &Session{
		ch:    ch,
		cfg:   cfg,
		log:   log,
		state: StateIdle,
	}
}

// OpenGate raises the barrier and lowers it again after the dwell time. The
// close command is sent even when ctx ends during the dwell.
func (s *Session) OpenGate(ctx context.Context) error {
	if err := s.ch.WriteByte(cmdOpen); err != nil {
		return fmt.Errorf("send open: %w", err)
	}
	s.log.Debug().Msg("gate opened")

	timer := time.NewTimer(s.cfg.GateDwell)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if err := s.ch.WriteByte(cmdClose); err != nil {
		return fmt.Errorf("send close: %w", err)
	}
	s.log.Debug().Msg("gate closed")
	return waitErr
}

func (s *Session) Alert(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ch.WriteByte(cmdAlert); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

// NextLine reads the next unsolicited line from the device, such as a card
// read on the payment station.
func (s *Session) NextLine(ctx context.Context, timeout time.Duration) (string, error) {
	return s.ch.ReadLine(ctx, timeout)
}

// Pay runs the balance handshake and returns the new balance once the device
// confirms the deduction. Only a nil error means the device reached
// COMPLETE.
func (s *Session) Pay(ctx context.Context, balance, charge decimal.Decimal) (decimal.Decimal, error) {
	s.setState(StateIdle)

	if charge.GreaterThan(balance) {
		if err := s.ch.WriteLine(insufficientMarker); err != nil {
			return decimal.Zero, fmt.Errorf("send insufficient marker: %w", err)
		}
		s.log.Info().
			Str("balance", balance.String()).
			Str("charge", charge.String()).
			Msg("insufficient balance")
		return decimal.Zero, ErrInsufficientBalance
	}

	s.setState(StateAwaitingReady)
	if err := s.await(ctx, s.cfg.ReadyTimeout, func(line string) bool { return line == readyLine }); err != nil {
		return decimal.Zero, s.abort(err)
	}

	newBalance := balance.Sub(charge)
	if err := s.ch.WriteLine(newBalance.String()); err != nil {
		return decimal.Zero, s.abort(fmt.Errorf("send balance: %w", err))
	}
	s.setState(StateBalanceSent)

	s.setState(StateAwaitingDone)
	if err := s.await(ctx, s.cfg.DoneTimeout, func(line string) bool { return strings.Contains(line, doneToken) }); err != nil {
		return decimal.Zero, s.abort(err)
	}

	s.setState(StateComplete)
	return newBalance, nil
}

// await discards lines until match accepts one or the budget runs out.
func (s *Session) await(ctx context.Context, budget time.Duration, match func(string) bool) error {
	deadline := time.Now().Add(budget)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrHandshakeTimeout
		}

		line, err := s.ch.ReadLine(ctx, remaining)
		if errors.Is(err, ErrReadTimeout) {
			return ErrHandshakeTimeout
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if match(line) {
			return nil
		}
		s.log.Debug().Str("line", line).Msg("ignoring device line")
	}
}

func (s *Session) abort(err error) error {
	if errors.Is(err, ErrHandshakeTimeout) {
		s.setState(StateTimedOut)
	} else {
		s.setState(StateIdle)
	}
	return err
}

func (s *Session) State() HandshakeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state HandshakeState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
