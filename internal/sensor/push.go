package sensor

import (
	"context"
	"errors"

	"parking-gate-service/internal/domain/parking"
)

var ErrQueueFull = errors.New("observation queue full")

// PushSource is fed by cameras that recognise plates on board and post their
// reads to the API. Each pushed read is one capture cycle.
type PushSource struct {
	queue chan parking.PlateObservation
}

func NewPushSource(buffer int) *PushSource {
	if buffer <= 0 {
		buffer = 16
	}
	return &PushSource{queue: make(chan parking.PlateObservation, buffer)}
}

// Push enqueues a read without blocking the caller.
func (s *PushSource) Push(obs parking.PlateObservation) error {
	select {
	case s.queue <- obs:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *PushSource) Next(ctx context.Context) ([]parking.PlateObservation, error) {
	select {
	case obs := <-s.queue:
		return []parking.PlateObservation{obs}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
