package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"parking-gate-service/internal/domain/parking"
)

// MemoryLedger keeps plate records in process memory. A single mutex
// serializes every operation, which gives the same atomicity as the
// database-backed ledgers. Data does not survive a restart.
type MemoryLedger struct {
	mu      sync.Mutex
	records []*parking.PlateRecord
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (l *MemoryLedger) WithClock(now func() time.Time) *MemoryLedger {
	l.now = now
	return l
}

func (l *MemoryLedger) stamp() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

func (l *MemoryLedger) OpenEntry(_ context.Context, plate string) (parking.EntryReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.latestWhere(plate, func(r *parking.PlateRecord) bool { return r.IsOpen() }) != nil {
		return parking.EntryReceipt{}, parking.ErrAlreadyOpen
	}

	rec := &parking.PlateRecord{
		ID:            uuid.New(),
		PlateNumber:   plate,
		PaymentStatus: parking.PaymentUnpaid,
		EntryTime:     l.stamp(),
		ExitStatus:    parking.ExitNone,
	}
	l.records = append(l.records, rec)

	return parking.EntryReceipt{RecordID: rec.ID, Plate: plate, EntryTime: rec.EntryTime}, nil
}

func (l *MemoryLedger) IsPaid(_ context.Context, plate string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest := l.latestWhere(plate, func(*parking.PlateRecord) bool { return true })
	return latest != nil && latest.IsPaid(), nil
}

func (l *MemoryLedger) MarkPaid(_ context.Context, plate string, entryTime time.Time, amount decimal.Decimal) (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.records {
		if r.PlateNumber == plate && r.EntryTime.Equal(entryTime) && r.PaymentStatus == parking.PaymentUnpaid {
			paidAt := l.stamp()
			r.PaymentStatus = parking.PaymentPaid
			r.PaymentTime = null.TimeFrom(paidAt)
			r.AmountCharged = decimal.NewNullDecimal(amount)
			return paidAt, nil
		}
	}
	return time.Time{}, parking.ErrNotFound
}

func (l *MemoryLedger) RecordExit(_ context.Context, plate string, status parking.ExitStatus) (parking.ExitReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch status {
	case parking.ExitDenied:
		open := l.latestWhere(plate, func(r *parking.PlateRecord) bool { return r.IsOpen() })
		if open == nil {
			return parking.ExitReceipt{}, parking.ErrNoEligibleRecord
		}
		if open.ExitStatus == parking.ExitDenied {
			return exitReceipt(open, true), nil
		}
		open.ExitStatus = parking.ExitDenied
		return exitReceipt(open, false), nil

	case parking.ExitNormal:
		paid := l.latestWhere(plate, func(r *parking.PlateRecord) bool { return r.IsOpen() && r.IsPaid() })
		if paid == nil {
			latest := l.latestWhere(plate, func(*parking.PlateRecord) bool { return true })
			if latest != nil && !latest.IsOpen() && latest.ExitStatus == parking.ExitNormal {
				return exitReceipt(latest, true), nil
			}
			return parking.ExitReceipt{}, parking.ErrNoEligibleRecord
		}
		paid.ExitTime = null.TimeFrom(l.stamp())
		paid.ExitStatus = parking.ExitNormal
		return exitReceipt(paid, false), nil
	}

	return parking.ExitReceipt{}, errUnsupportedExitStatus(status)
}

func (l *MemoryLedger) LatestUnpaid(_ context.Context, plate string) (parking.PlateRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.latestWhere(plate, func(r *parking.PlateRecord) bool { return r.PaymentStatus == parking.PaymentUnpaid })
	if rec == nil {
		return parking.PlateRecord{}, parking.ErrNotFound
	}
	return *rec, nil
}

func (l *MemoryLedger) ListRecords(_ context.Context, filter parking.RecordFilter) ([]parking.PlateRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]parking.PlateRecord, 0, len(l.records))
	for _, r := range l.records {
		if filter.Plate != nil && r.PlateNumber != *filter.Plate {
			continue
		}
		if filter.Open != nil && r.IsOpen() != *filter.Open {
			continue
		}
		result = append(result, *r)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EntryTime.After(result[j].EntryTime)
	})

	offset, limit := pageBounds(filter, len(result))
	return result[offset:limit], nil
}

// latestWhere returns the matching record with the greatest entry time. Ties
// go to the record inserted last.
func (l *MemoryLedger) latestWhere(plate string, match func(*parking.PlateRecord) bool) *parking.PlateRecord {
	var latest *parking.PlateRecord
	for _, r := range l.records {
		if r.PlateNumber != plate || !match(r) {
			continue
		}
		if latest == nil || !r.EntryTime.Before(latest.EntryTime) {
			latest = r
		}
	}
	return latest
}
