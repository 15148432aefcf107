package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"parking-gate-service/internal/domain/parking"
	"parking-gate-service/internal/utils"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrLaneUnavailable = errors.New("lane does not accept pushed reads")
	ErrLowConfidence   = errors.New("read confidence below threshold")
)

// Pusher accepts plate reads for a push-mode lane.
type Pusher interface {
	Push(obs parking.PlateObservation) error
}

type EventFinder interface {
	FindByPlate(ctx context.Context, plate string, limit int) ([]parking.LaneEvent, error)
}

// AdminService backs the HTTP API: camera push ingestion and operator access
// to the ledger.
type AdminService struct {
	ledger        Ledger
	fees          FeeCalculator
	events        EventFinder
	minConfidence float64
	now           func() time.Time
	log           zerolog.Logger

	mu      sync.RWMutex
	pushers map[parking.LaneKind]Pusher
}

// NewAdminService builds the service. Pushed reads that report a confidence
// below minConfidence are refused, matching local recognition.
func NewAdminService(ledger Ledger, fees FeeCalculator, events EventFinder, minConfidence float64, log zerolog.Logger) *AdminService {
	return &AdminService{
		ledger:        ledger,
		fees:          fees,
		events:        events,
		minConfidence: minConfidence,
		now:           time.Now,
		log:           log,
		pushers:       make(map[parking.LaneKind]Pusher),
	}
}

func (s *AdminService) RegisterPushLane(kind parking.LaneKind, p Pusher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushers[kind] = p
}

func (s *AdminService) ProcessIncomingEvent(ctx context.Context, payload parking.EventPayload) (*parking.IngestResult, error) {
	if strings.TrimSpace(payload.Plate) == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	if payload.CameraID == "" {
		return nil, fmt.Errorf("%w: camera_id is required", ErrInvalidInput)
	}

	lane := parking.LaneKind(strings.ToLower(strings.TrimSpace(payload.Direction)))
	if lane != parking.LaneEntry && lane != parking.LaneExit {
		return nil, fmt.Errorf("%w: direction must be entry or exit", ErrInvalidInput)
	}
	if payload.Confidence != nil && *payload.Confidence < s.minConfidence {
		s.log.Debug().
			Str("lane", string(lane)).
			Str("raw_plate", payload.Plate).
			Float64("confidence", *payload.Confidence).
			Msg("dropped low confidence pushed read")
		return nil, fmt.Errorf("%w: %.1f < %.1f", ErrLowConfidence, *payload.Confidence, s.minConfidence)
	}
	if payload.EventTime.IsZero() {
		payload.EventTime = s.now()
	}

	s.mu.RLock()
	pusher, ok := s.pushers[lane]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLaneUnavailable, lane)
	}

	// The raw read goes to the lane untouched; validation and voting happen
	// there, the same as for frames recognised locally.
	obs := parking.PlateObservation{
		RawText:   payload.Plate,
		CameraID:  payload.CameraID,
		Timestamp: payload.EventTime,
	}
	if err := pusher.Push(obs); err != nil {
		s.log.Warn().
			Err(err).
			Str("lane", string(lane)).
			Str("camera_id", payload.CameraID).
			Msg("failed to queue pushed read")
		return nil, fmt.Errorf("queue read for %s lane: %w", lane, err)
	}

	s.log.Debug().
		Str("lane", string(lane)).
		Str("raw_plate", payload.Plate).
		Str("camera_id", payload.CameraID).
		Time("event_time", payload.EventTime).
		Msg("queued pushed read")

	return &parking.IngestResult{Lane: lane, Plate: payload.Plate, EventTime: payload.EventTime}, nil
}

func (s *AdminService) FindRecords(ctx context.Context, plateQuery *string, open *bool, limit, offset int) ([]parking.PlateRecord, error) {
	filter := parking.RecordFilter{Open: open, Limit: limit, Offset: offset}
	if plateQuery != nil {
		normalized := utils.NormalizePlate(*plateQuery)
		if normalized == "" {
			return nil, fmt.Errorf("%w: plate query cannot be empty", ErrInvalidInput)
		}
		filter.Plate = &normalized
	}

	records, err := s.ledger.ListRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// MarkPaid settles the latest unpaid stay of a plate. Without an explicit
// amount the tariff fee up to now is charged.
func (s *AdminService) MarkPaid(ctx context.Context, plate string, amount *decimal.Decimal) (*parking.ManualPayment, error) {
	normalized := utils.NormalizePlate(plate)
	if normalized == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	if amount != nil && amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}

	rec, err := s.ledger.LatestUnpaid(ctx, normalized)
	if err != nil {
		return nil, err
	}

	charge := s.fees.Charge(rec.EntryTime, s.now())
	if amount != nil {
		charge = *amount
	}

	paidAt, err := s.ledger.MarkPaid(ctx, normalized, rec.EntryTime, charge)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("plate", normalized).
		Str("record_id", rec.ID.String()).
		Str("amount", charge.String()).
		Msg("stay marked paid by operator")

	return &parking.ManualPayment{
		RecordID:    rec.ID,
		Plate:       normalized,
		EntryTime:   rec.EntryTime,
		PaymentTime: paidAt,
		Amount:      charge,
	}, nil
}

func (s *AdminService) FindEvents(ctx context.Context, plate string, limit int) ([]parking.LaneEvent, error) {
	normalized := utils.NormalizePlate(plate)
	if normalized == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	if s.events == nil {
		return []parking.LaneEvent{}, nil
	}
	return s.events.FindByPlate(ctx, normalized, limit)
}
