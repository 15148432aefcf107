package service

//go:generate mockgen -source=events.go -destination=mocks/mock_events.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parking-gate-service/internal/domain/parking"
)

// EventRecorder receives one audit event per lane decision. Recording is best
// effort: a failure never changes the decision.
type EventRecorder interface {
	Record(ctx context.Context, event parking.LaneEvent) error
}

type MultiRecorder []EventRecorder

func (m MultiRecorder) Record(ctx context.Context, event parking.LaneEvent) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogRecorder writes events to the process log only.
type LogRecorder struct {
	log zerolog.Logger
}

func NewLogRecorder(log zerolog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(_ context.Context, event parking.LaneEvent) error {
	r.log.Info().
		Str("lane", string(event.Lane)).
		Str("plate", event.Plate).
		Str("outcome", string(event.Outcome)).
		Interface("detail", event.Detail).
		Time("occurred_at", event.OccurredAt).
		Msg("lane event")
	return nil
}

func newLaneEvent(lane parking.LaneKind, plate string, outcome parking.Outcome, at time.Time, detail map[string]interface{}) parking.LaneEvent {
	return parking.LaneEvent{
		ID:         uuid.New(),
		Lane:       lane,
		Plate:      plate,
		Outcome:    outcome,
		Detail:     detail,
		OccurredAt: at,
	}
}

func recordEvent(ctx context.Context, rec EventRecorder, log zerolog.Logger, event parking.LaneEvent) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Str("plate", event.Plate).
			Str("outcome", string(event.Outcome)).
			Msg("failed to record lane event")
	}
}
