package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parking-gate-service/internal/domain/parking"
)

// ExitController grants or denies exit on the payment state of the plate.
type ExitController struct {
	ledger Ledger
	gate   Gate
	events EventRecorder
	now    func() time.Time
	log    zerolog.Logger
}

func NewExitController(ledger Ledger, gate Gate, events EventRecorder, log zerolog.Logger) *ExitController {
	return &ExitController{
		ledger: ledger,
		gate:   gate,
		events: events,
		now:    time.Now,
		log:    log,
	}
}

func (c *ExitController) Handle(ctx context.Context, plate string) (parking.Outcome, error) {
	paid, err := c.ledger.IsPaid(ctx, plate)
	if err != nil {
		return "", fmt.Errorf("check payment for %s: %w", plate, err)
	}

	if paid {
		detail, err := c.recordExit(ctx, plate, parking.ExitNormal)
		if err != nil {
			return "", err
		}
		c.log.Info().Str("plate", plate).Msg("exit granted")
		if err := c.gate.OpenGate(ctx); err != nil {
			c.log.Error().Err(err).Str("plate", plate).Msg("failed to actuate exit gate")
		}
		recordEvent(ctx, c.events, c.log, newLaneEvent(parking.LaneExit, plate, parking.OutcomeGranted, c.now(), detail))
		return parking.OutcomeGranted, nil
	}

	detail, err := c.recordExit(ctx, plate, parking.ExitDenied)
	if err != nil {
		return "", err
	}
	c.log.Warn().Str("plate", plate).Msg("exit denied, payment missing")
	if err := c.gate.Alert(ctx); err != nil {
		c.log.Error().Err(err).Str("plate", plate).Msg("failed to sound exit alert")
	}
	recordEvent(ctx, c.events, c.log, newLaneEvent(parking.LaneExit, plate, parking.OutcomeDenied, c.now(), detail))
	return parking.OutcomeDenied, nil
}

// recordExit writes the exit status. A missing eligible record is logged and
// does not stop the physical action.
func (c *ExitController) recordExit(ctx context.Context, plate string, status parking.ExitStatus) (map[string]interface{}, error) {
	receipt, err := c.ledger.RecordExit(ctx, plate, status)
	if errors.Is(err, parking.ErrNoEligibleRecord) {
		c.log.Warn().
			Str("plate", plate).
			Str("exit_status", string(status)).
			Msg("no eligible record for exit")
		return map[string]interface{}{"ledger": "no_eligible_record"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record %s exit for %s: %w", status, plate, err)
	}

	detail := map[string]interface{}{
		"record_id":        receipt.RecordID.String(),
		"already_recorded": receipt.AlreadyRecorded,
	}
	if receipt.AmountCharged.Valid {
		detail["amount_charged"] = receipt.AmountCharged.Decimal.String()
	}
	return detail, nil
}
