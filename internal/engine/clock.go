package engine

// Clock hands out call indices during a replay.
//
// Every call in a sequence is stamped with a strictly increasing index,
// starting at 0, whether or not the call resolves against the model. Violation
// and trace records refer to calls by this index.
//
// A Clock belongs to exactly one replay and is not safe for concurrent use.
type Clock struct {
	next int
}

// NewClock creates a clock whose first index is 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next call index and advances the clock.
func (c *Clock) Next() int {
	i := c.next
	c.next++
	return i
}
