package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"parking-gate-service/internal/device"
	"parking-gate-service/internal/domain/parking"
	"parking-gate-service/internal/utils"
)

const commitTimeout = 10 * time.Second

// PaymentController serves the payment station. The terminal reports card
// reads as "PLATE,BALANCE" lines; the stay is charged and committed to the
// ledger only after the terminal confirms the deduction.
type PaymentController struct {
	ledger      Ledger
	terminal    PaymentTerminal
	fees        FeeCalculator
	events      EventRecorder
	readTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewPaymentController(ledger Ledger, terminal PaymentTerminal, fees FeeCalculator, readTimeout time.Duration, events EventRecorder, log zerolog.Logger) *PaymentController {
	if readTimeout <= 0 {
		readTimeout = time.Second
	}
	return &PaymentController{
		ledger:      ledger,
		terminal:    terminal,
		fees:        fees,
		events:      events,
		readTimeout: readTimeout,
		now:         time.Now,
		log:         log,
	}
}

// Run reads card lines until ctx is done.
func (c *PaymentController) Run(ctx context.Context) error {
	c.log.Info().Msg("payment station started")
	defer c.log.Info().Msg("payment station stopped")

	for {
		line, err := c.terminal.NextLine(ctx, c.readTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, device.ErrReadTimeout) {
			continue
		}
		if err != nil {
			c.log.Error().Err(err).Msg("failed to read payment terminal")
			if !sleepCtx(ctx, laneBackoff) {
				return nil
			}
			continue
		}

		plate, balance, ok := parseCardLine(line)
		if !ok {
			c.log.Debug().Str("line", line).Msg("discarding malformed terminal line")
			continue
		}

		if _, err := c.Handle(ctx, plate, balance); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Str("plate", plate).Msg("payment cycle failed")
		}
	}
}

func (c *PaymentController) Handle(ctx context.Context, plate string, balance decimal.Decimal) (parking.Outcome, error) {
	rec, err := c.ledger.LatestUnpaid(ctx, plate)
	if errors.Is(err, parking.ErrNotFound) {
		c.log.Info().Str("plate", plate).Msg("no unpaid stay for plate")
		return c.failed(ctx, plate, "no_unpaid_record", nil), nil
	}
	if err != nil {
		return "", fmt.Errorf("find unpaid stay for %s: %w", plate, err)
	}

	fee := c.fees.Charge(rec.EntryTime, c.now())
	log := c.log.With().
		Str("plate", plate).
		Str("record_id", rec.ID.String()).
		Str("fee", fee.String()).
		Str("balance", balance.String()).
		Logger()

	newBalance, err := c.terminal.Pay(ctx, balance, fee)
	switch {
	case errors.Is(err, device.ErrInsufficientBalance):
		log.Info().Msg("payment refused, insufficient balance")
		return c.failed(ctx, plate, "insufficient_balance", &fee), nil
	case errors.Is(err, device.ErrHandshakeTimeout):
		log.Warn().Msg("payment terminal did not answer in time")
		return c.failed(ctx, plate, "handshake_timeout", &fee), nil
	case err != nil:
		return "", fmt.Errorf("payment handshake for %s: %w", plate, err)
	}

	// The terminal has already deducted the balance; the commit must not be
	// lost to a shutdown that races it.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	paidAt, err := c.ledger.MarkPaid(commitCtx, plate, rec.EntryTime, fee)
	if errors.Is(err, parking.ErrNotFound) {
		log.Error().Msg("stay was settled concurrently, terminal already charged")
		return c.failed(ctx, plate, "already_paid", &fee), nil
	}
	if err != nil {
		return "", fmt.Errorf("mark %s paid: %w", plate, err)
	}

	log.Info().
		Str("new_balance", newBalance.String()).
		Time("payment_time", paidAt).
		Msg("payment complete")

	recordEvent(ctx, c.events, c.log, newLaneEvent(parking.LanePayment, plate, parking.OutcomePaymentComplete, paidAt, map[string]interface{}{
		"record_id":   rec.ID.String(),
		"amount":      fee.String(),
		"new_balance": newBalance.String(),
	}))
	return parking.OutcomePaymentComplete, nil
}

func (c *PaymentController) failed(ctx context.Context, plate, reason string, fee *decimal.Decimal) parking.Outcome {
	detail := map[string]interface{}{"reason": reason}
	if fee != nil {
		detail["amount"] = fee.String()
	}
	recordEvent(ctx, c.events, c.log, newLaneEvent(parking.LanePayment, plate, parking.OutcomePaymentFailed, c.now(), detail))
	return parking.OutcomePaymentFailed
}

// parseCardLine splits a "PLATE,BALANCE" terminal line. Non-digit characters
// in the balance are dropped; the plate must be well formed.
func parseCardLine(line string) (string, decimal.Decimal, bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 2 {
		return "", decimal.Zero, false
	}

	plate, ok := utils.ValidatePlate(parts[0])
	if !ok {
		return "", decimal.Zero, false
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, parts[1])
	if digits == "" {
		return "", decimal.Zero, false
	}

	balance, err := decimal.NewFromString(digits)
	if err != nil {
		return "", decimal.Zero, false
	}
	return plate, balance, true
}
