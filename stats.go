package bptreekv

import "sync/atomic"

// Stats are running counters exposed by Tree.Stats, adapted from the
// teacher's stat.go atomic-counter pattern: every field is updated with
// atomic ops rather than under the tree's mutex, since callers may poll
// Stats from a goroutine that doesn't otherwise touch the tree.
type Stats struct {
	Gets           uint64
	Sets           uint64
	Removes        uint64
	Splits         uint64
	PageWrites     uint64
	BytesWritten   uint64
	Compactions    uint64
	HeadRecoveries uint64
}

type statCounters struct {
	gets           atomic.Uint64
	sets           atomic.Uint64
	removes        atomic.Uint64
	splits         atomic.Uint64
	pageWrites     atomic.Uint64
	bytesWritten   atomic.Uint64
	compactions    atomic.Uint64
	headRecoveries atomic.Uint64
}

func (c *statCounters) snapshot() Stats {
	return Stats{
		Gets:           c.gets.Load(),
		Sets:           c.sets.Load(),
		Removes:        c.removes.Load(),
		Splits:         c.splits.Load(),
		PageWrites:     c.pageWrites.Load(),
		BytesWritten:   c.bytesWritten.Load(),
		Compactions:    c.compactions.Load(),
		HeadRecoveries: c.headRecoveries.Load(),
	}
}
