package services

import (
	"math/rand"
	"sync"
	"time"

	"luckyenvelope/internal/models"
)

// Selector picks a prize kind with probability proportional to its
// remaining stock.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector seeded with seed. A zero seed uses the clock.
func NewSelector(seed int64) *Selector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// Pick returns the id of the chosen prize, walking prizes in catalog order.
// ok is false when no prize has remaining stock.
func (s *Selector) Pick(prizes []models.Prize, remaining map[string]int) (id string, ok bool) {
	total := 0
	last := ""
	for _, p := range prizes {
		if n := remaining[p.ID]; n > 0 {
			total += n
			last = p.ID
		}
	}
	if total == 0 {
		return "", false
	}

	s.mu.Lock()
	draw := s.rng.Intn(total)
	s.mu.Unlock()

	// A draw equal to a cumulative boundary belongs to the next interval.
	cum := 0
	for _, p := range prizes {
		n := remaining[p.ID]
		if n <= 0 {
			continue
		}
		cum += n
		if draw < cum {
			return p.ID, true
		}
	}
	return last, true
}
