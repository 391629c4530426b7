package metrics

import "sync"

// OutcomeCounter tallies resolved prediction outcomes by status.
type OutcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewOutcomeCounter builds an empty counter.
func NewOutcomeCounter() *OutcomeCounter {
	return &OutcomeCounter{counts: make(map[string]int64)}
}

// Observe increments the count for status.
func (c *OutcomeCounter) Observe(status string) {
	c.mu.Lock()
	c.counts[status]++
	c.mu.Unlock()
}

// Snapshot returns a copy of the current counts.
func (c *OutcomeCounter) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of observed outcomes.
func (c *OutcomeCounter) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, v := range c.counts {
		total += v
	}
	return total
}
