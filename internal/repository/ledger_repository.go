package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-gate-service/internal/domain/parking"
)

type LedgerRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db, now: time.Now}
}

type PlateLog struct {
	ID            uuid.UUID             `gorm:"type:uuid;primaryKey"`
	PlateNumber   string                `gorm:"not null"`
	PaymentStatus parking.PaymentStatus `gorm:"not null"`
	EntryTime     time.Time             `gorm:"not null"`
	PaymentTime   null.Time
	ExitTime      null.Time
	ExitStatus    parking.ExitStatus `gorm:"not null"`
	AmountCharged decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (PlateLog) TableName() string {
	return "plates_log"
}

func (p PlateLog) toDomain() parking.PlateRecord {
	rec := parking.PlateRecord{
		ID:            p.ID,
		PlateNumber:   p.PlateNumber,
		PaymentStatus: p.PaymentStatus,
		EntryTime:     p.EntryTime.UTC(),
		PaymentTime:   p.PaymentTime,
		ExitTime:      p.ExitTime,
		ExitStatus:    p.ExitStatus,
		AmountCharged: p.AmountCharged,
	}
	if rec.PaymentTime.Valid {
		rec.PaymentTime.Time = rec.PaymentTime.Time.UTC()
	}
	if rec.ExitTime.Valid {
		rec.ExitTime.Time = rec.ExitTime.Time.UTC()
	}
	return rec
}

func (r *LedgerRepository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// lockPlate serializes writers for one plate until the surrounding
// transaction ends.
func lockPlate(tx *gorm.DB, plate string) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", plate).Error
}

func (r *LedgerRepository) OpenEntry(ctx context.Context, plate string) (parking.EntryReceipt, error) {
	row := PlateLog{
		ID:            uuid.New(),
		PlateNumber:   plate,
		PaymentStatus: parking.PaymentUnpaid,
		EntryTime:     r.stamp(),
		ExitStatus:    parking.ExitNone,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPlate(tx, plate); err != nil {
			return err
		}

		var open int64
		err := tx.Model(&PlateLog{}).
			Where("plate_number = ? AND exit_time IS NULL", plate).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return parking.ErrAlreadyOpen
		}

		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parking.EntryReceipt{}, parking.ErrAlreadyOpen
	}
	if err != nil {
		return parking.EntryReceipt{}, err
	}

	return parking.EntryReceipt{RecordID: row.ID, Plate: plate, EntryTime: row.EntryTime}, nil
}

func (r *LedgerRepository) IsPaid(ctx context.Context, plate string) (bool, error) {
	var row PlateLog
	err := r.db.WithContext(ctx).
		Where("plate_number = ?", plate).
		Order("entry_time DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return row.PaymentStatus == parking.PaymentPaid, nil
}

func (r *LedgerRepository) MarkPaid(ctx context.Context, plate string, entryTime time.Time, amount decimal.Decimal) (time.Time, error) {
	paidAt := r.stamp()
	res := r.db.WithContext(ctx).
		Model(&PlateLog{}).
		Where("plate_number = ? AND entry_time = ? AND payment_status = ?", plate, entryTime, parking.PaymentUnpaid).
		Updates(map[string]interface{}{
			"payment_status": parking.PaymentPaid,
			"payment_time":   paidAt,
			"amount_charged": amount,
			"updated_at":     paidAt,
		})
	if res.Error != nil {
		return time.Time{}, res.Error
	}
	if res.RowsAffected == 0 {
		return time.Time{}, parking.ErrNotFound
	}
	return paidAt, nil
}

func (r *LedgerRepository) RecordExit(ctx context.Context, plate string, status parking.ExitStatus) (parking.ExitReceipt, error) {
	if status != parking.ExitDenied && status != parking.ExitNormal {
		return parking.ExitReceipt{}, errUnsupportedExitStatus(status)
	}

	var receipt parking.ExitReceipt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPlate(tx, plate); err != nil {
			return err
		}

		if status == parking.ExitDenied {
			var open PlateLog
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("plate_number = ? AND exit_time IS NULL", plate).
				Order("entry_time DESC").
				First(&open).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return parking.ErrNoEligibleRecord
			}
			if err != nil {
				return err
			}

			if open.ExitStatus == parking.ExitDenied {
				rec := open.toDomain()
				receipt = exitReceipt(&rec, true)
				return nil
			}

			err = tx.Model(&PlateLog{}).
				Where("id = ?", open.ID).
				Updates(map[string]interface{}{
					"exit_status": parking.ExitDenied,
					"updated_at":  r.stamp(),
				}).Error
			if err != nil {
				return err
			}
			open.ExitStatus = parking.ExitDenied
			rec := open.toDomain()
			receipt = exitReceipt(&rec, false)
			return nil
		}

		var paid PlateLog
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("plate_number = ? AND payment_status = ? AND exit_time IS NULL", plate, parking.PaymentPaid).
			Order("entry_time DESC").
			First(&paid).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			var latest PlateLog
			err := tx.Where("plate_number = ?", plate).
				Order("entry_time DESC").
				First(&latest).Error
			if err == nil && latest.ExitTime.Valid && latest.ExitStatus == parking.ExitNormal {
				rec := latest.toDomain()
				receipt = exitReceipt(&rec, true)
				return nil
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return parking.ErrNoEligibleRecord
		}
		if err != nil {
			return err
		}

		exitAt := r.stamp()
		err = tx.Model(&PlateLog{}).
			Where("id = ?", paid.ID).
			Updates(map[string]interface{}{
				"exit_time":   exitAt,
				"exit_status": parking.ExitNormal,
				"updated_at":  exitAt,
			}).Error
		if err != nil {
			return err
		}
		paid.ExitTime = null.TimeFrom(exitAt)
		paid.ExitStatus = parking.ExitNormal
		rec := paid.toDomain()
		receipt = exitReceipt(&rec, false)
		return nil
	})
	if err != nil {
		return parking.ExitReceipt{}, err
	}
	return receipt, nil
}

func (r *LedgerRepository) LatestUnpaid(ctx context.Context, plate string) (parking.PlateRecord, error) {
	var row PlateLog
	err := r.db.WithContext(ctx).
		Where("plate_number = ? AND payment_status = ?", plate, parking.PaymentUnpaid).
		Order("entry_time DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parking.PlateRecord{}, parking.ErrNotFound
	}
	if err != nil {
		return parking.PlateRecord{}, err
	}
	return row.toDomain(), nil
}

func (r *LedgerRepository) ListRecords(ctx context.Context, filter parking.RecordFilter) ([]parking.PlateRecord, error) {
	query := r.db.WithContext(ctx).Model(&PlateLog{})

	if filter.Plate != nil {
		query = query.Where("plate_number = ?", *filter.Plate)
	}
	if filter.Open != nil {
		if *filter.Open {
			query = query.Where("exit_time IS NULL")
		} else {
			query = query.Where("exit_time IS NOT NULL")
		}
	}

	query = query.Order("entry_time DESC").Limit(normalizeLimit(filter.Limit))
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []PlateLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]parking.PlateRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
