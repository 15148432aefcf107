package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeCalculator applies the linear per-minute tariff.
type FeeCalculator struct {
	ratePerMinute decimal.Decimal
}

func NewFeeCalculator(ratePerMinute decimal.Decimal) FeeCalculator {
	return FeeCalculator{ratePerMinute: ratePerMinute}
}

// Charge bills whole elapsed minutes with a minimum of one, so a stay shorter
// than a minute still costs one minute.
func (f FeeCalculator) Charge(entry, now time.Time) decimal.Decimal {
	minutes := int64(now.Sub(entry) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return f.ratePerMinute.Mul(decimal.NewFromInt(minutes))
}

func (f FeeCalculator) Rate() decimal.Decimal {
	return f.ratePerMinute
}
