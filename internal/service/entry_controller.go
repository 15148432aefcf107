package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parking-gate-service/internal/domain/parking"
)

// EntryController decides on stable plates at the entry lane.
type EntryController struct {
	ledger   Ledger
	gate     Gate
	cooldown *Cooldown
	events   EventRecorder
	now      func() time.Time
	log      zerolog.Logger
}

func NewEntryController(ledger Ledger, gate Gate, cooldown time.Duration, events EventRecorder, log zerolog.Logger) *EntryController {
	return &EntryController{
		ledger:   ledger,
		gate:     gate,
		cooldown: NewCooldown(cooldown),
		events:   events,
		now:      time.Now,
		log:      log,
	}
}

func (c *EntryController) Handle(ctx context.Context, plate string) (parking.Outcome, error) {
	now := c.now()

	if !c.cooldown.Allow(plate, now) {
		c.log.Info().Str("plate", plate).Msg("entry suppressed by cooldown")
		recordEvent(ctx, c.events, c.log, newLaneEvent(parking.LaneEntry, plate, parking.OutcomeSuppressed, now, nil))
		return parking.OutcomeSuppressed, nil
	}

	receipt, err := c.ledger.OpenEntry(ctx, plate)
	if errors.Is(err, parking.ErrAlreadyOpen) {
		c.log.Info().Str("plate", plate).Msg("plate already inside, entry rejected")
		recordEvent(ctx, c.events, c.log, newLaneEvent(parking.LaneEntry, plate, parking.OutcomeRejectedDup, now, nil))
		return parking.OutcomeRejectedDup, nil
	}
	if err != nil {
		return "", fmt.Errorf("open entry for %s: %w", plate, err)
	}

	c.cooldown.Mark(plate, now)

	c.log.Info().
		Str("plate", plate).
		Str("record_id", receipt.RecordID.String()).
		Time("entry_time", receipt.EntryTime).
		Msg("entry admitted")

	if err := c.gate.OpenGate(ctx); err != nil {
		c.log.Error().Err(err).Str("plate", plate).Msg("failed to actuate entry gate")
	}

	recordEvent(ctx, c.events, c.log, newLaneEvent(parking.LaneEntry, plate, parking.OutcomeAdmitted, now, map[string]interface{}{
		"record_id":  receipt.RecordID.String(),
		"entry_time": receipt.EntryTime,
	}))
	return parking.OutcomeAdmitted, nil
}
