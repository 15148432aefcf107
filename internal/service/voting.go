package service

import "time"

const DefaultQuorum = 3

// VotingBuffer turns noisy per-frame reads into one stable plate. Each call
// to Observe adds a vote; once quorum votes are collected the most frequent
// plate wins, ties going to the plate seen first, and the buffer starts over.
type VotingBuffer struct {
	quorum int
	votes  []string
}

func NewVotingBuffer(quorum int) *VotingBuffer {
	if quorum < 1 {
		quorum = DefaultQuorum
	}
	return &VotingBuffer{quorum: quorum, votes: make([]string, 0, quorum)}
}

func (b *VotingBuffer) Observe(plate string) (string, bool) {
	b.votes = append(b.votes, plate)
	if len(b.votes) < b.quorum {
		return "", false
	}

	counts := make(map[string]int, len(b.votes))
	for _, v := range b.votes {
		counts[v]++
	}

	winner, best := "", 0
	for _, v := range b.votes {
		if counts[v] > best {
			winner, best = v, counts[v]
		}
	}

	b.votes = b.votes[:0]
	return winner, true
}

func (b *VotingBuffer) Len() int {
	return len(b.votes)
}

// Cooldown suppresses a repeated trigger for the same plate within interval
// of the last successful one.
type Cooldown struct {
	interval  time.Duration
	lastPlate string
	lastAt    time.Time
}

func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval}
}

func (c *Cooldown) Allow(plate string, now time.Time) bool {
	if c.lastPlate == "" || plate != c.lastPlate {
		return true
	}
	return now.Sub(c.lastAt) >= c.interval
}

func (c *Cooldown) Mark(plate string, now time.Time) {
	c.lastPlate = plate
	c.lastAt = now
}
