package repository

import (
	"fmt"

	"parking-gate-service/internal/domain/parking"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func exitReceipt(r *parking.PlateRecord, already bool) parking.ExitReceipt {
	return parking.ExitReceipt{
		RecordID:        r.ID,
		Plate:           r.PlateNumber,
		Status:          r.ExitStatus,
		ExitTime:        r.ExitTime,
		AmountCharged:   r.AmountCharged,
		AlreadyRecorded: already,
	}
}

func errUnsupportedExitStatus(status parking.ExitStatus) error {
	return fmt.Errorf("unsupported exit status %q", status)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// pageBounds converts a filter into slice bounds over n sorted records.
func pageBounds(filter parking.RecordFilter, n int) (int, int) {
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := offset + normalizeLimit(filter.Limit)
	if end > n {
		end = n
	}
	return offset, end
}
