// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"context"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// Result is a Handler's decision after processing one packet.
type Result struct {
	exit bool
	err  error
}

// Continue keeps the processing loop running.
func Continue() Result {
	return Result{}
}

// Exit stops the processing loop after the current packet is retired.
// err is returned to the loop's caller; it may be nil.
func Exit(err error) Result {
	return Result{exit: true, err: err}
}

// Handler processes one packet of a soft queue.
//
// The Packet view is only valid during the call. Errors the handler cannot
// deal with are returned through Exit rather than dropped.
type Handler func(p Packet) Result

// SoftQueue is a queue drained by a software processing loop instead of a
// hardware packet processor.
//
// The loop is the queue's only consumer: exactly one Process or
// ProcessContext call may run at a time.
type SoftQueue struct {
	*Queue
	consuming atomix.Int32
}

// Process drains the queue until the handler returns Exit.
//
// For each packet, in write order, the loop waits for the doorbell to reach
// the packet's index, waits for a barrier packet's dependencies, calls h,
// decrements the completion signal, retires the slot and advances the read
// index. Process blocks only while waiting; termination is decided by h.
// Closing the runtime does not stop Process.
//
// Example:
//
//	err := sq.Process(func(p aql.Packet) aql.Result {
//	    if a := p.AgentDispatch(); a != nil {
//	        serve(a)
//	        return aql.Continue()
//	    }
//	    return aql.Exit(nil)
//	})
func (q *SoftQueue) Process(h Handler) error {
	return q.process(context.Background(), Forever, h)
}

// ProcessContext is Process with cooperative cancellation.
//
// Every wait is bounded by interval. When it elapses the loop polls ctx and
// the runtime: it returns ctx.Err() once ctx is done and ErrClosed once the
// runtime is closed, otherwise it keeps waiting. A packet already handed to
// h is always retired before the loop returns.
//
// Panics if interval <= 0.
func (q *SoftQueue) ProcessContext(ctx context.Context, interval time.Duration, h Handler) error {
	if interval <= 0 {
		panic("aql: ProcessContext requires a positive interval")
	}
	return q.process(ctx, interval, h)
}

func (q *SoftQueue) process(ctx context.Context, interval time.Duration, h Handler) (err error) {
	if !q.consuming.CompareAndSwapAcqRel(0, 1) {
		panic("aql: concurrent processing loops on one queue")
	}
	defer q.consuming.StoreRelease(0)

	read := q.readIndex.LoadAcquire()
	defer func() {
		q.logger.Debug("aql: processing loop exited", "read_index", read, "err", err)
	}()

	for {
		// Waiting for doorbell.
		for {
			v := q.doorbell.WaitFor(CondGreaterEqual, int64(read), Acquire, interval, WaitBlocked)
			if v >= int64(read) {
				break
			}
			if err := q.poll(ctx, interval); err != nil {
				return err
			}
		}

		// Draining.
		s := &q.slots[read&q.mask]
		if err := q.awaitPublished(ctx, interval, s); err != nil {
			return err
		}
		switch s.packetType() {
		case PacketBarrierAnd:
			if err := q.awaitAll(ctx, interval, s.barrier()); err != nil {
				return err
			}
		case PacketBarrierOr:
			if err := q.awaitAny(ctx, interval, s.barrier()); err != nil {
				return err
			}
		}

		ret := h(Packet{s: s, index: read, rt: q.rt})
		if c := q.rt.Signal(s.completion()); c != nil {
			c.Subtract(1, Release)
		}
		s.retire()
		read++
		q.readIndex.StoreRelease(read)

		if ret.exit {
			return ret.err
		}
	}
}

// poll reports why the loop should stop, or nil to keep waiting.
// Loops without an interval never stop on their own.
func (q *SoftQueue) poll(ctx context.Context, interval time.Duration) error {
	if interval == Forever {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !q.rt.Alive() {
		return ErrClosed
	}
	return nil
}

// awaitPublished waits for a producer that rang the doorbell past this slot
// but has not yet published it.
func (q *SoftQueue) awaitPublished(ctx context.Context, interval time.Duration, s *slot) error {
	if s.packetType() != PacketInvalid {
		return nil
	}
	sw := spin.Wait{}
	for range blockedSpins {
		sw.Once()
		if s.packetType() != PacketInvalid {
			return nil
		}
	}
	backoff := iox.Backoff{}
	for s.packetType() == PacketInvalid {
		if err := q.poll(ctx, interval); err != nil {
			return err
		}
		backoff.Wait()
	}
	return nil
}

// awaitAll waits until every dependency of a barrier-AND reaches zero.
// Destroyed dependency signals count as satisfied.
func (q *SoftQueue) awaitAll(ctx context.Context, interval time.Duration, p *BarrierPacket) error {
	for _, h := range p.DepSignal {
		dep := q.rt.Signal(h)
		if dep == nil {
			continue
		}
		for dep.WaitFor(CondEqual, 0, Acquire, interval, WaitBlocked) != 0 {
			if err := q.poll(ctx, interval); err != nil {
				return err
			}
		}
	}
	return nil
}

// awaitAny waits until any dependency of a barrier-OR reaches zero.
// A barrier-OR with no live dependency is satisfied.
func (q *SoftQueue) awaitAny(ctx context.Context, interval time.Duration, p *BarrierPacket) error {
	var deps [MaxBarrierDeps]*Signal
	n := 0
	for _, h := range p.DepSignal {
		if dep := q.rt.Signal(h); dep != nil {
			deps[n] = dep
			n++
		}
	}
	if n == 0 {
		return nil
	}

	backoff := iox.Backoff{}
	for {
		for _, dep := range deps[:n] {
			if dep.Load(Acquire) == 0 {
				return nil
			}
		}
		if err := q.poll(ctx, interval); err != nil {
			return err
		}
		backoff.Wait()
	}
}
