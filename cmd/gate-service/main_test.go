package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"parking-gate-service/internal/config"
	"parking-gate-service/internal/repository"
	"parking-gate-service/internal/service"
)

func newTestApp(cfg *config.Config) *app {
	ledger := repository.NewMemoryLedger()
	fees := service.NewFeeCalculator(decimal.NewFromInt(8))
	return &app{
		cfg:    cfg,
		log:    zerolog.Nop(),
		ledger: ledger,
		events: service.NewLogRecorder(zerolog.Nop()),
		fees:   fees,
		admin:  service.NewAdminService(ledger, fees, nil, 70, zerolog.Nop()),
		taken:  make(map[string]bool),
	}
}

func TestBuildWorkers(t *testing.T) {
	t.Run("nothing enabled", func(t *testing.T) {
		a := newTestApp(&config.Config{})
		workers, err := a.buildWorkers()
		if err != nil {
			t.Fatalf("build workers: %v", err)
		}
		if len(workers) != 0 {
			t.Fatalf("expected no workers, got %d", len(workers))
		}
	})

	t.Run("a lane that cannot open its port starts nothing", func(t *testing.T) {
		cfg := &config.Config{
			Entry:   config.LaneConfig{Enabled: true, Source: "push", SerialPort: "/dev/parking-gate-missing-entry"},
			Exit:    config.LaneConfig{Enabled: true, Source: "push", SerialPort: "/dev/parking-gate-missing-exit"},
			Payment: config.PaymentConfig{Enabled: true, SerialPort: "/dev/parking-gate-missing-pay"},
		}
		a := newTestApp(cfg)

		workers, err := a.buildWorkers()
		if err == nil {
			t.Fatalf("expected an error for a missing serial port")
		}
		if workers != nil {
			t.Fatalf("expected no workers on failure, got %d", len(workers))
		}
		if len(a.closers) != 0 {
			t.Fatalf("expected nothing to release, got %d closers", len(a.closers))
		}
	})
}
