package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"parking-gate-service/internal/domain/parking"
	"parking-gate-service/internal/service/mocks"
)

func outcomeIs(outcome parking.Outcome) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		ev, ok := x.(parking.LaneEvent)
		return ok && ev.Outcome == outcome
	})
}

func newEntryController(ctrl *gomock.Controller, now *time.Time) (*EntryController, *mocks.MockLedger, *mocks.MockGate, *mocks.MockEventRecorder) {
	ledger := mocks.NewMockLedger(ctrl)
	gate := mocks.NewMockGate(ctrl)
	events := mocks.NewMockEventRecorder(ctrl)

	c := NewEntryController(ledger, gate, 300*time.Second, events, zerolog.Nop())
	c.now = func() time.Time { return *now }
	return c, ledger, gate, events
}

func TestEntryController_Handle(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("admits and opens the gate", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		now := start
		c, ledger, gate, events := newEntryController(ctrl, &now)

		gomock.InOrder(
			ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{RecordID: uuid.New(), Plate: "RAB123C", EntryTime: start}, nil),
			gate.EXPECT().OpenGate(gomock.Any()).Return(nil),
		)
		events.EXPECT().Record(gomock.Any(), outcomeIs(parking.OutcomeAdmitted)).Return(nil)

		outcome, err := c.Handle(ctx, "RAB123C")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome != parking.OutcomeAdmitted {
			t.Fatalf("expected ADMITTED, got %s", outcome)
		}
	})

	t.Run("rejects a plate already inside", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		now := start
		c, ledger, _, events := newEntryController(ctrl, &now)

		ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{}, parking.ErrAlreadyOpen)
		events.EXPECT().Record(gomock.Any(), outcomeIs(parking.OutcomeRejectedDup)).Return(nil)

		outcome, err := c.Handle(ctx, "RAB123C")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome != parking.OutcomeRejectedDup {
			t.Fatalf("expected REJECTED_DUP, got %s", outcome)
		}
	})

	t.Run("rejected plate does not start a cooldown", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		now := start
		c, ledger, gate, events := newEntryController(ctrl, &now)

		gomock.InOrder(
			ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{}, parking.ErrAlreadyOpen),
			ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{RecordID: uuid.New()}, nil),
		)
		gate.EXPECT().OpenGate(gomock.Any()).Return(nil)
		events.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		c.Handle(ctx, "RAB123C")
		now = start.Add(time.Second)
		if outcome, _ := c.Handle(ctx, "RAB123C"); outcome != parking.OutcomeAdmitted {
			t.Fatalf("expected ADMITTED, got %s", outcome)
		}
	})

	t.Run("suppresses a repeat inside the cooldown", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		now := start
		c, ledger, gate, events := newEntryController(ctrl, &now)

		ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{RecordID: uuid.New()}, nil).Times(2)
		gate.EXPECT().OpenGate(gomock.Any()).Return(nil).Times(2)
		events.EXPECT().Record(gomock.Any(), outcomeIs(parking.OutcomeAdmitted)).Return(nil).Times(2)
		events.EXPECT().Record(gomock.Any(), outcomeIs(parking.OutcomeSuppressed)).Return(nil)

		if outcome, _ := c.Handle(ctx, "RAB123C"); outcome != parking.OutcomeAdmitted {
			t.Fatalf("expected ADMITTED, got %s", outcome)
		}

		now = start.Add(120 * time.Second)
		if outcome, _ := c.Handle(ctx, "RAB123C"); outcome != parking.OutcomeSuppressed {
			t.Fatalf("expected SUPPRESSED, got %s", outcome)
		}

		now = start.Add(300 * time.Second)
		if outcome, _ := c.Handle(ctx, "RAB123C"); outcome != parking.OutcomeAdmitted {
			t.Fatalf("expected ADMITTED after the cooldown, got %s", outcome)
		}
	})

	t.Run("gate failure keeps the admission", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		now := start
		c, ledger, gate, events := newEntryController(ctrl, &now)

		ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{RecordID: uuid.New()}, nil)
		gate.EXPECT().OpenGate(gomock.Any()).Return(errors.New("port unplugged"))
		events.EXPECT().Record(gomock.Any(), outcomeIs(parking.OutcomeAdmitted)).Return(nil)

		outcome, err := c.Handle(ctx, "RAB123C")
		if err != nil || outcome != parking.OutcomeAdmitted {
			t.Fatalf("expected ADMITTED, got %s (%v)", outcome, err)
		}
	})

	t.Run("ledger failure aborts the cycle", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		now := start
		c, ledger, _, _ := newEntryController(ctrl, &now)

		dbErr := errors.New("connection refused")
		ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{}, dbErr)

		_, err := c.Handle(ctx, "RAB123C")
		if !errors.Is(err, dbErr) {
			t.Fatalf("expected wrapped ledger error, got %v", err)
		}
	})

	t.Run("event recorder failure is not a decision failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		now := start
		c, ledger, _, events := newEntryController(ctrl, &now)

		ledger.EXPECT().OpenEntry(gomock.Any(), "RAB123C").Return(parking.EntryReceipt{}, parking.ErrAlreadyOpen)
		events.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("queue down"))

		if _, err := c.Handle(ctx, "RAB123C"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
