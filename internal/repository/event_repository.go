package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"parking-gate-service/internal/domain/parking"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

type LaneEventRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lane       string    `gorm:"not null"`
	Plate      string    `gorm:"not null"`
	Outcome    string    `gorm:"not null"`
	Detail     datatypes.JSON
	OccurredAt time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

func (LaneEventRow) TableName() string {
	return "lane_events"
}

func (r *EventRepository) Record(ctx context.Context, event parking.LaneEvent) error {
	row := LaneEventRow{
		ID:         event.ID,
		Lane:       string(event.Lane),
		Plate:      event.Plate,
		Outcome:    string(event.Outcome),
		OccurredAt: event.OccurredAt,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if len(event.Detail) > 0 {
		raw, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshal lane event detail: %w", err)
		}
		row.Detail = datatypes.JSON(raw)
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *EventRepository) FindByPlate(ctx context.Context, plate string, limit int) ([]parking.LaneEvent, error) {
	var rows []LaneEventRow
	err := r.db.WithContext(ctx).
		Where("plate = ?", plate).
		Order("occurred_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]parking.LaneEvent, 0, len(rows))
	for _, row := range rows {
		ev := parking.LaneEvent{
			ID:         row.ID,
			Lane:       parking.LaneKind(row.Lane),
			Plate:      row.Plate,
			Outcome:    parking.Outcome(row.Outcome),
			OccurredAt: row.OccurredAt.UTC(),
		}
		if len(row.Detail) > 0 {
			if err := json.Unmarshal(row.Detail, &ev.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal lane event detail: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}
