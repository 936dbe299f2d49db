package tokens

import "sync/atomic"

// Counter accumulates estimated token usage for a batch run. The batch runs
// strictly sequentially today, but the counter is atomic so a parallel
// driver stays correct without changes here.
type Counter struct {
	n atomic.Int64
}

func NewCounter() *Counter {
	return &Counter{}
}

// Add records the estimated cost of one dispatch.
func (c *Counter) Add(n int) {
	c.n.Add(int64(n))
}

// Total returns the tokens consumed since process start.
func (c *Counter) Total() int64 {
	return c.n.Load()
}
