package parking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

type ExitStatus string

const (
	ExitNone   ExitStatus = "NONE"
	ExitNormal ExitStatus = "NORMAL"
	ExitDenied ExitStatus = "DENIED"
)

// PlateRecord is one stay of a vehicle in the facility. A record with no
// ExitTime is open: the vehicle is considered parked.
type PlateRecord struct {
	ID            uuid.UUID           `json:"id"`
	PlateNumber   string              `json:"plate_number"`
	PaymentStatus PaymentStatus       `json:"payment_status"`
	EntryTime     time.Time           `json:"entry_time"`
	PaymentTime   null.Time           `json:"payment_time"`
	ExitTime      null.Time           `json:"exit_time"`
	ExitStatus    ExitStatus          `json:"exit_status"`
	AmountCharged decimal.NullDecimal `json:"amount_charged"`
}

func (r PlateRecord) IsOpen() bool {
	return !r.ExitTime.Valid
}

func (r PlateRecord) IsPaid() bool {
	return r.PaymentStatus == PaymentPaid
}

type EntryReceipt struct {
	RecordID  uuid.UUID `json:"record_id"`
	Plate     string    `json:"plate"`
	EntryTime time.Time `json:"entry_time"`
}

// ExitReceipt describes the ledger effect of an exit attempt. AlreadyRecorded
// is set when the attempt repeated a terminal status and nothing was written.
type ExitReceipt struct {
	RecordID        uuid.UUID           `json:"record_id"`
	Plate           string              `json:"plate"`
	Status          ExitStatus          `json:"status"`
	ExitTime        null.Time           `json:"exit_time"`
	AmountCharged   decimal.NullDecimal `json:"amount_charged"`
	AlreadyRecorded bool                `json:"already_recorded"`
}

type RecordFilter struct {
	Plate  *string
	Open   *bool
	Limit  int
	Offset int
}

// Region is a bounding box in relative image coordinates.
type Region struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PlateObservation is a raw candidate produced by a recognizer for one
// detected region. It carries no correctness guarantee.
type PlateObservation struct {
	RawText   string    `json:"raw_text"`
	Region    Region    `json:"region"`
	CameraID  string    `json:"camera_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type LaneKind string

const (
	LaneEntry   LaneKind = "entry"
	LaneExit    LaneKind = "exit"
	LanePayment LaneKind = "payment"
)

type Outcome string

const (
	OutcomeAdmitted        Outcome = "ADMITTED"
	OutcomeRejectedDup     Outcome = "REJECTED_DUP"
	OutcomeSuppressed      Outcome = "SUPPRESSED"
	OutcomeGranted         Outcome = "GRANTED"
	OutcomeDenied          Outcome = "DENIED"
	OutcomePaymentComplete Outcome = "PAYMENT_COMPLETE"
	OutcomePaymentFailed   Outcome = "PAYMENT_FAILED"
)

// LaneEvent is an audit entry for one lane decision.
type LaneEvent struct {
	ID         uuid.UUID              `json:"id"`
	Lane       LaneKind               `json:"lane"`
	Plate      string                 `json:"plate"`
	Outcome    Outcome                `json:"outcome"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
