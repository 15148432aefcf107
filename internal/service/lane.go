package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parking-gate-service/internal/domain/parking"
	"parking-gate-service/internal/utils"
)

const laneBackoff = time.Second

// ObservationSource yields the raw plate reads of one capture cycle. An empty
// slice is a valid cycle with nothing in view.
type ObservationSource interface {
	Next(ctx context.Context) ([]parking.PlateObservation, error)
}

// PlateHandler decides on a stable plate.
type PlateHandler interface {
	Handle(ctx context.Context, plate string) (parking.Outcome, error)
}

type LaneState string

const (
	LaneWatching  LaneState = "WATCHING"
	LaneCandidate LaneState = "CANDIDATE"
	LaneVoted     LaneState = "VOTED"
)

// Lane is the sequential control loop of one entry or exit point: capture,
// validate, vote, decide. No two decisions of a lane are ever in flight.
type Lane struct {
	kind    parking.LaneKind
	source  ObservationSource
	votes   *VotingBuffer
	handler PlateHandler
	log     zerolog.Logger

	mu          sync.Mutex
	state       LaneState
	lastOutcome parking.Outcome
}

func NewLane(kind parking.LaneKind, source ObservationSource, quorum int, handler PlateHandler, log zerolog.Logger) *Lane {
	return &Lane{
		kind:    kind,
		source:  source,
		votes:   NewVotingBuffer(quorum),
		handler: handler,
		log:     log.With().Str("lane", string(kind)).Logger(),
		state:   LaneWatching,
	}
}

func (l *Lane) Run(ctx context.Context) error {
	l.log.Info().Msg("lane started")
	defer l.log.Info().Msg("lane stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		observations, err := l.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Error().Err(err).Msg("capture cycle failed")
			if !sleepCtx(ctx, laneBackoff) {
				return nil
			}
			continue
		}

		l.process(ctx, observations)
	}
}

func (l *Lane) process(ctx context.Context, observations []parking.PlateObservation) {
	if len(observations) > 0 {
		l.setState(LaneCandidate)
	}
	defer l.setState(LaneWatching)

	for _, obs := range observations {
		plate, ok := utils.ValidatePlate(obs.RawText)
		if !ok {
			l.log.Debug().Str("raw_text", obs.RawText).Msg("discarding unreadable plate")
			continue
		}

		stable, ok := l.votes.Observe(plate)
		if !ok {
			continue
		}
		l.setState(LaneVoted)

		outcome, err := l.handler.Handle(ctx, stable)
		if err != nil {
			l.log.Error().Err(err).Str("plate", stable).Msg("lane decision failed")
			continue
		}
		l.setOutcome(outcome)
		l.log.Debug().Str("plate", stable).Str("outcome", string(outcome)).Msg("lane decision")
	}
}

func (l *Lane) Kind() parking.LaneKind {
	return l.kind
}

func (l *Lane) State() LaneState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lane) LastOutcome() parking.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastOutcome
}

func (l *Lane) setState(s LaneState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Lane) setOutcome(o parking.Outcome) {
	l.mu.Lock()
	l.lastOutcome = o
	l.mu.Unlock()
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
