package service

//go:generate mockgen -source=ledger.go -destination=mocks/mock_ledger.go -package=mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"parking-gate-service/internal/domain/parking"
)

// Ledger is the durable record store shared by all lanes. Expected business
// outcomes are reported through the sentinel errors of the parking package;
// any other error is an infrastructure failure.
//
// Implementations must make the check-then-write steps of OpenEntry and
// RecordExit atomic against concurrent callers.
type Ledger interface {
	OpenEntry(ctx context.Context, plate string) (parking.EntryReceipt, error)
	// IsPaid reports whether the most recent record for plate, by entry time,
	// is paid. It does not look for the open record specifically.
	IsPaid(ctx context.Context, plate string) (bool, error)
	MarkPaid(ctx context.Context, plate string, entryTime time.Time, amount decimal.Decimal) (time.Time, error)
	RecordExit(ctx context.Context, plate string, status parking.ExitStatus) (parking.ExitReceipt, error)
	LatestUnpaid(ctx context.Context, plate string) (parking.PlateRecord, error)
	ListRecords(ctx context.Context, filter parking.RecordFilter) ([]parking.PlateRecord, error)
}

// Gate actuates the barrier and buzzer of one lane.
type Gate interface {
	OpenGate(ctx context.Context) error
	Alert(ctx context.Context) error
}

// PaymentTerminal is the payment peripheral: it reports card reads as text
// lines and runs the balance handshake.
type PaymentTerminal interface {
	NextLine(ctx context.Context, timeout time.Duration) (string, error)
	Pay(ctx context.Context, balance, charge decimal.Decimal) (decimal.Decimal, error)
}
