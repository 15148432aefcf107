package service

import (
	"testing"
	"time"
)

func TestVotingBuffer_Observe(t *testing.T) {
	t.Run("majority wins at quorum", func(t *testing.T) {
		b := NewVotingBuffer(3)
		for i, plate := range []string{"AAA1111A", "AAA1111A"} {
			if _, ok := b.Observe(plate); ok {
				t.Fatalf("vote %d must not reach quorum", i)
			}
		}
		got, ok := b.Observe("BBB2222B")
		if !ok || got != "AAA1111A" {
			t.Fatalf("expected AAA1111A, got %q (%v)", got, ok)
		}
		if b.Len() != 0 {
			t.Fatalf("buffer must be empty after a vote, has %d", b.Len())
		}
	})

	t.Run("tie goes to first seen", func(t *testing.T) {
		b := NewVotingBuffer(3)
		b.Observe("RAC456D")
		b.Observe("RAB123C")
		got, ok := b.Observe("RAE789F")
		if !ok || got != "RAC456D" {
			t.Fatalf("expected RAC456D, got %q (%v)", got, ok)
		}
	})

	t.Run("later majority beats first seen", func(t *testing.T) {
		b := NewVotingBuffer(3)
		b.Observe("RAC456D")
		b.Observe("RAB123C")
		got, _ := b.Observe("RAB123C")
		if got != "RAB123C" {
			t.Fatalf("expected RAB123C, got %q", got)
		}
	})

	t.Run("next round starts fresh", func(t *testing.T) {
		b := NewVotingBuffer(3)
		b.Observe("RAB123C")
		b.Observe("RAB123C")
		b.Observe("RAB123C")

		if _, ok := b.Observe("RAC456D"); ok {
			t.Fatalf("new round must wait for quorum again")
		}
		if b.Len() != 1 {
			t.Fatalf("expected one vote, got %d", b.Len())
		}
	})

	t.Run("invalid quorum falls back to default", func(t *testing.T) {
		b := NewVotingBuffer(0)
		b.Observe("RAB123C")
		b.Observe("RAB123C")
		if _, ok := b.Observe("RAB123C"); !ok {
			t.Fatalf("expected quorum of %d", DefaultQuorum)
		}
	})
}

func TestCooldown(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	c := NewCooldown(300 * time.Second)

	if !c.Allow("RAB123C", start) {
		t.Fatalf("first trigger must pass")
	}
	c.Mark("RAB123C", start)

	tests := []struct {
		name  string
		plate string
		at    time.Time
		want  bool
	}{
		{"same plate inside window", "RAB123C", start.Add(299 * time.Second), false},
		{"same plate at window end", "RAB123C", start.Add(300 * time.Second), true},
		{"other plate inside window", "RAC456D", start.Add(10 * time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Allow(tt.plate, tt.at); got != tt.want {
				t.Fatalf("Allow(%s) = %v, want %v", tt.plate, got, tt.want)
			}
		})
	}
}
