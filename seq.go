package lsm

import "sync/atomic"

// seqCounter is the single monotonic counter an open engine threads
// through its WAL writer, level directory, and memtable pair. It is
// explicitly constructed once per Open call rather than kept as a
// package-level global, so multiple engines in one process (as in
// tests) never share sequence space.
type seqCounter struct {
	n atomic.Int64
}

// next returns the next sequence number, starting at 1 so 0 is never
// a valid sequence (useful as a sentinel in the memtable/level code).
func (c *seqCounter) next() int64 {
	return c.n.Add(1)
}

// observe bumps the counter forward so it never issues a value
// already seen during WAL replay or level-file recovery.
func (c *seqCounter) observe(seen int64) {
	for {
		cur := c.n.Load()
		if seen <= cur {
			return
		}
		if c.n.CompareAndSwap(cur, seen) {
			return
		}
	}
}
