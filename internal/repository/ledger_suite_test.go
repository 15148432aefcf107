package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"parking-gate-service/internal/domain/parking"
	"parking-gate-service/internal/service"
)

var (
	_ service.Ledger = (*MemoryLedger)(nil)
	_ service.Ledger = (*LedgerRepository)(nil)
	_ service.Ledger = (*DynamoLedger)(nil)
)

// uniquePlate keeps suite runs against shared databases independent.
func uniquePlate() string {
	return "T" + uuid.NewString()[:6]
}

// runLedgerSuite checks the behaviour every ledger backend must share.
func runLedgerSuite(t *testing.T, ledger service.Ledger) {
	ctx := context.Background()
	fee := decimal.NewFromInt(8)

	t.Run("second entry while open is rejected", func(t *testing.T) {
		plate := uniquePlate()
		receipt, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		if receipt.Plate != plate || receipt.RecordID == uuid.Nil {
			t.Fatalf("unexpected receipt: %+v", receipt)
		}
		if _, err := ledger.OpenEntry(ctx, plate); !errors.Is(err, parking.ErrAlreadyOpen) {
			t.Fatalf("expected ErrAlreadyOpen, got %v", err)
		}
	})

	t.Run("unknown plate is not paid", func(t *testing.T) {
		paid, err := ledger.IsPaid(ctx, uniquePlate())
		if err != nil {
			t.Fatalf("is paid: %v", err)
		}
		if paid {
			t.Fatalf("expected unknown plate to be unpaid")
		}
	})

	t.Run("mark paid flips is paid once", func(t *testing.T) {
		plate := uniquePlate()
		receipt, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		if paid, _ := ledger.IsPaid(ctx, plate); paid {
			t.Fatalf("fresh entry must be unpaid")
		}

		paidAt, err := ledger.MarkPaid(ctx, plate, receipt.EntryTime, fee)
		if err != nil {
			t.Fatalf("mark paid: %v", err)
		}
		if paidAt.Before(receipt.EntryTime) {
			t.Fatalf("payment time %v before entry time %v", paidAt, receipt.EntryTime)
		}
		if paid, _ := ledger.IsPaid(ctx, plate); !paid {
			t.Fatalf("expected plate to be paid")
		}
		if _, err := ledger.MarkPaid(ctx, plate, receipt.EntryTime, fee); !errors.Is(err, parking.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second payment, got %v", err)
		}
	})

	t.Run("mark paid with unknown entry time", func(t *testing.T) {
		plate := uniquePlate()
		receipt, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		_, err = ledger.MarkPaid(ctx, plate, receipt.EntryTime.Add(-time.Minute), fee)
		if !errors.Is(err, parking.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("denied exit keeps the record open", func(t *testing.T) {
		plate := uniquePlate()
		if _, err := ledger.OpenEntry(ctx, plate); err != nil {
			t.Fatalf("open entry: %v", err)
		}

		exit, err := ledger.RecordExit(ctx, plate, parking.ExitDenied)
		if err != nil {
			t.Fatalf("record denied: %v", err)
		}
		if exit.Status != parking.ExitDenied || exit.AlreadyRecorded || exit.ExitTime.Valid {
			t.Fatalf("unexpected receipt: %+v", exit)
		}

		again, err := ledger.RecordExit(ctx, plate, parking.ExitDenied)
		if err != nil {
			t.Fatalf("repeat denied: %v", err)
		}
		if !again.AlreadyRecorded {
			t.Fatalf("expected repeat to be reported as already recorded")
		}
		if _, err := ledger.OpenEntry(ctx, plate); !errors.Is(err, parking.ErrAlreadyOpen) {
			t.Fatalf("denied record must stay open, got %v", err)
		}
	})

	t.Run("denied exit without an open record", func(t *testing.T) {
		_, err := ledger.RecordExit(ctx, uniquePlate(), parking.ExitDenied)
		if !errors.Is(err, parking.ErrNoEligibleRecord) {
			t.Fatalf("expected ErrNoEligibleRecord, got %v", err)
		}
	})

	t.Run("normal exit requires payment", func(t *testing.T) {
		plate := uniquePlate()
		if _, err := ledger.OpenEntry(ctx, plate); err != nil {
			t.Fatalf("open entry: %v", err)
		}
		_, err := ledger.RecordExit(ctx, plate, parking.ExitNormal)
		if !errors.Is(err, parking.ErrNoEligibleRecord) {
			t.Fatalf("expected ErrNoEligibleRecord, got %v", err)
		}
	})

	t.Run("normal exit closes the record", func(t *testing.T) {
		plate := uniquePlate()
		receipt, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		if _, err := ledger.MarkPaid(ctx, plate, receipt.EntryTime, fee); err != nil {
			t.Fatalf("mark paid: %v", err)
		}

		exit, err := ledger.RecordExit(ctx, plate, parking.ExitNormal)
		if err != nil {
			t.Fatalf("record exit: %v", err)
		}
		if exit.Status != parking.ExitNormal || !exit.ExitTime.Valid || exit.AlreadyRecorded {
			t.Fatalf("unexpected receipt: %+v", exit)
		}
		if exit.RecordID != receipt.RecordID {
			t.Fatalf("closed record %s, want %s", exit.RecordID, receipt.RecordID)
		}
		if !exit.AmountCharged.Valid || !exit.AmountCharged.Decimal.Equal(fee) {
			t.Fatalf("expected amount %s, got %+v", fee, exit.AmountCharged)
		}

		again, err := ledger.RecordExit(ctx, plate, parking.ExitNormal)
		if err != nil {
			t.Fatalf("repeat exit: %v", err)
		}
		if !again.AlreadyRecorded {
			t.Fatalf("expected repeat to be reported as already recorded")
		}
	})

	t.Run("paid after denial exits normally", func(t *testing.T) {
		plate := uniquePlate()
		receipt, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		if _, err := ledger.RecordExit(ctx, plate, parking.ExitDenied); err != nil {
			t.Fatalf("record denied: %v", err)
		}
		if _, err := ledger.MarkPaid(ctx, plate, receipt.EntryTime, fee); err != nil {
			t.Fatalf("mark paid: %v", err)
		}
		exit, err := ledger.RecordExit(ctx, plate, parking.ExitNormal)
		if err != nil {
			t.Fatalf("record exit: %v", err)
		}
		if exit.Status != parking.ExitNormal {
			t.Fatalf("expected NORMAL, got %s", exit.Status)
		}
	})

	t.Run("new stay after exit starts unpaid", func(t *testing.T) {
		plate := uniquePlate()
		first, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		if _, err := ledger.MarkPaid(ctx, plate, first.EntryTime, fee); err != nil {
			t.Fatalf("mark paid: %v", err)
		}
		if _, err := ledger.RecordExit(ctx, plate, parking.ExitNormal); err != nil {
			t.Fatalf("record exit: %v", err)
		}

		time.Sleep(2 * time.Millisecond)
		second, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("re-entry: %v", err)
		}
		if paid, _ := ledger.IsPaid(ctx, plate); paid {
			t.Fatalf("latest record must decide payment")
		}

		unpaid, err := ledger.LatestUnpaid(ctx, plate)
		if err != nil {
			t.Fatalf("latest unpaid: %v", err)
		}
		if unpaid.ID != second.RecordID {
			t.Fatalf("expected record %s, got %s", second.RecordID, unpaid.ID)
		}
		if !unpaid.EntryTime.Equal(second.EntryTime) {
			t.Fatalf("entry time %v does not round trip, got %v", second.EntryTime, unpaid.EntryTime)
		}
	})

	t.Run("latest unpaid with nothing due", func(t *testing.T) {
		_, err := ledger.LatestUnpaid(ctx, uniquePlate())
		if !errors.Is(err, parking.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list records filters by plate and state", func(t *testing.T) {
		plate := uniquePlate()
		first, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		if _, err := ledger.MarkPaid(ctx, plate, first.EntryTime, fee); err != nil {
			t.Fatalf("mark paid: %v", err)
		}
		if _, err := ledger.RecordExit(ctx, plate, parking.ExitNormal); err != nil {
			t.Fatalf("record exit: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
		second, err := ledger.OpenEntry(ctx, plate)
		if err != nil {
			t.Fatalf("re-entry: %v", err)
		}

		all, err := ledger.ListRecords(ctx, parking.RecordFilter{Plate: &plate})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 records, got %d", len(all))
		}
		if all[0].ID != second.RecordID {
			t.Fatalf("expected newest record first")
		}

		open := true
		onlyOpen, err := ledger.ListRecords(ctx, parking.RecordFilter{Plate: &plate, Open: &open})
		if err != nil {
			t.Fatalf("list open: %v", err)
		}
		if len(onlyOpen) != 1 || onlyOpen[0].ID != second.RecordID {
			t.Fatalf("unexpected open records: %+v", onlyOpen)
		}

		paged, err := ledger.ListRecords(ctx, parking.RecordFilter{Plate: &plate, Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("list page: %v", err)
		}
		if len(paged) != 1 || paged[0].ID != first.RecordID {
			t.Fatalf("unexpected page: %+v", paged)
		}
	})

	t.Run("concurrent entries open one record", func(t *testing.T) {
		plate := uniquePlate()
		const attempts = 8

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			opened   int
			rejected int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.OpenEntry(ctx, plate)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					opened++
				case errors.Is(err, parking.ErrAlreadyOpen):
					rejected++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if opened != 1 || rejected != attempts-1 {
			t.Fatalf("opened=%d rejected=%d", opened, rejected)
		}
	})
}
