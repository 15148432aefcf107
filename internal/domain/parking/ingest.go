package parking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPayload is a plate read posted by a camera that recognises on board.
// Confidence uses the same 0-100 scale as local recognition and may be
// omitted by cameras that do not report one.
type EventPayload struct {
	CameraID   string    `json:"camera_id"`
	Plate      string    `json:"plate"`
	Confidence *float64  `json:"confidence,omitempty"`
	Direction  string    `json:"direction"`
	EventTime  time.Time `json:"event_time"`
}

type IngestResult struct {
	Lane      LaneKind  `json:"lane"`
	Plate     string    `json:"plate"`
	EventTime time.Time `json:"event_time"`
}

// ManualPayment is the outcome of an operator settling a stay by hand.
type ManualPayment struct {
	RecordID    uuid.UUID       `json:"record_id"`
	Plate       string          `json:"plate"`
	EntryTime   time.Time       `json:"entry_time"`
	PaymentTime time.Time       `json:"payment_time"`
	Amount      decimal.Decimal `json:"amount"`
}
