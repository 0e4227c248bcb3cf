// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"iter"
	"slices"
)

// TryEnqueueBarrierAnd publishes a barrier-AND packet.
//
// Packets enqueued after the barrier do not start until every non-nil
// dependency has reached zero. deps holds at most MaxBarrierDeps signals;
// nil entries are null dependencies. completion may be nil.
// Returns ErrTooManyDeps before claiming a slot, ErrFull if no slot is free.
func (q *Queue) TryEnqueueBarrierAnd(deps []*Signal, completion *Signal) error {
	return q.tryEnqueueBarrier(PacketBarrierAnd, deps, completion)
}

// TryEnqueueBarrierOr publishes a barrier-OR packet.
//
// Packets enqueued after the barrier do not start until any non-nil
// dependency has reached zero. A barrier-OR without dependencies completes
// immediately.
func (q *Queue) TryEnqueueBarrierOr(deps []*Signal, completion *Signal) error {
	return q.tryEnqueueBarrier(PacketBarrierOr, deps, completion)
}

func (q *Queue) tryEnqueueBarrier(typ PacketType, deps []*Signal, completion *Signal) error {
	if len(deps) > MaxBarrierDeps {
		return ErrTooManyDeps
	}

	// Barriers carry no fences; the ordered bit is set when nothing waits
	// on a completion signal.
	header := EncodeHeader(typ, FenceNone, FenceNone, completion == nil)
	return q.tryEnqueue(header, 0, func(s *slot) {
		p := s.barrier()
		for i := range p.DepSignal {
			var h SignalHandle
			if i < len(deps) {
				h = deps[i].Handle()
			}
			p.DepSignal[i] = h
		}
		p.CompletionSignal = completion.Handle()
	})
}

// DependencySet is an ordered list of signals a later packet depends on.
//
// The queue never splits dependencies across barriers on its own. Callers
// with more than MaxBarrierDeps dependencies enqueue one barrier per chunk:
//
//	for deps := range set.Chunks() {
//	    if err := q.TryEnqueueBarrierAnd(deps, nil); err != nil {
//	        return err
//	    }
//	}
type DependencySet []*Signal

// Chunks yields consecutive groups of at most MaxBarrierDeps signals.
func (d DependencySet) Chunks() iter.Seq[[]*Signal] {
	return slices.Chunk([]*Signal(d), MaxBarrierDeps)
}

// Barriers returns the number of barrier packets the set needs.
func (d DependencySet) Barriers() int {
	return (len(d) + MaxBarrierDeps - 1) / MaxBarrierDeps
}
