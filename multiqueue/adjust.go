package multiqueue

// adjustLocked runs the cost-model adjuster for the hot handle h, observed
// at sequence number sn. Caller must hold mq.mu.
//
// Steps (see the adjustment algorithm in the filter cache design):
//  1. M starts at one unit's worth of memory for h.
//  2. Walk queues N..1 collecting cold, evictable candidates until their
//     combined OneUnitSize covers M, or abort if it never does.
//  3. Apply only if the adjusted cost (evicting the colds, loading h) is
//     strictly less than the original cost.
//  4. Perform the swap: evict every cold candidate's MRU-most unit, load
//     one unit into h.
//  5. Count the adjustment.
func (mq *MultiQueue) adjustLocked(h *Handle, sn uint64) {
	hot := h.n
	if !hot.reader.CanBeLoaded() {
		return
	}

	memory := hot.reader.OneUnitSize()
	var cold []*node
	for i := mq.unitsTotal; i >= 1; i-- {
		mq.queues[i].FindColdFilter(&memory, sn, hot, &cold)
		if memory <= 0 {
			break
		}
	}
	if memory > 0 {
		// No candidate set big enough was found; abort without touching
		// any reader.
		return
	}

	if !mq.canBeAdjusted(cold, hot) {
		return
	}

	mq.applyAdjustment(cold, hot)
	mq.adjustments++
}

// canBeAdjusted computes the cost-model comparison: is the expected number
// of wasted block reads strictly lower after the swap than before it?
func (mq *MultiQueue) canBeAdjusted(cold []*node, hot *node) bool {
	for _, c := range cold {
		if !c.reader.CanBeEvict() {
			return false
		}
	}

	var orig, adj float64
	for _, c := range cold {
		orig += c.reader.IOs()
		adj += c.reader.EvictIOs()
	}
	orig += hot.reader.IOs()
	adj += hot.reader.LoadIOs()

	return adj < orig
}

// applyAdjustment moves every cold node down one queue and evicts its most
// recently loaded unit, then moves the hot node up one queue and loads a
// unit into it. Queue membership is updated before the corresponding I/O so
// the invariant "queue index == residency" holds immediately after each
// step succeeds; a failed I/O leaves that one node's queue placement
// rolled back to match its actual (unchanged) residency.
func (mq *MultiQueue) applyAdjustment(cold []*node, hot *node) {
	for _, c := range cold {
		before := c.reader.Residency()
		mq.queues[before].Remove(c)
		if err := c.reader.EvictFilter(); err != nil {
			mq.logf("multiqueue: evict during adjustment: %v", err)
			mq.queues[before].Append(c)
			continue
		}
		after := c.reader.Residency()
		mq.usage -= uint64(before-after) * uint64(c.reader.OneUnitSize())
		mq.queues[after].Append(c)
	}

	before := hot.reader.Residency()
	mq.queues[before].Remove(hot)
	if err := hot.reader.LoadFilter(); err != nil {
		mq.logf("multiqueue: load during adjustment: %v", err)
		mq.queues[before].Append(hot)
		return
	}
	after := hot.reader.Residency()
	mq.usage += uint64(after-before) * uint64(hot.reader.OneUnitSize())
	mq.queues[after].Append(hot)
}
