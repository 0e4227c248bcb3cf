// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"log/slog"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Queue is a bounded ring of 64-byte packet slots.
//
// Producers claim a write index, fill the slot body, publish the header with
// one release store and ring the doorbell with the claimed index. Consumers
// wait on the doorbell, process the slot, retire its header and advance the
// read index. No lock is taken on either side.
//
// A full queue is detected before a write index is claimed, so ErrFull never
// leaves an unfilled slot in the ring.
//
// Memory: capacity × 64 bytes, 64-byte aligned
type Queue struct {
	_          pad
	writeIndex atomix.Uint64 // Producers claim here
	_          pad
	readIndex  atomix.Uint64 // Consumer advances here
	_          pad
	producing  atomix.Int32 // Single-producer ownership assertion
	destroyed  atomix.Int32
	_          pad
	slots      []slot
	mask       uint64
	kind       Kind
	features   Feature
	privateSeg uint32
	groupSeg   uint32
	doorbell   *Signal
	ownsBell   bool
	rt         *Runtime
	logger     *slog.Logger
}

func newQueue(rt *Runtime, opts Options, doorbell *Signal, ownsBell bool) (*Queue, error) {
	if err := rt.acquireQueue(); err != nil {
		return nil, err
	}

	n := uint64(roundToPow2(opts.capacity))
	features := opts.features
	if features == 0 {
		features = FeatureKernelDispatch
	}
	logger := opts.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	q := &Queue{
		slots:      alignedSlots(n),
		mask:       n - 1,
		kind:       opts.kind,
		features:   features,
		privateSeg: opts.privateSegmentSize,
		groupSeg:   opts.groupSegmentSize,
		doorbell:   doorbell,
		ownsBell:   ownsBell,
		rt:         rt,
		logger:     logger,
	}
	for i := range q.slots {
		q.slots[i].invalidate()
	}

	logger.Debug("aql: queue created",
		"capacity", n,
		"kind", q.kind,
		"doorbell", doorbell.Handle(),
		"owns_doorbell", ownsBell)
	return q, nil
}

// alignedSlots returns n slots starting on a PacketSize boundary.
func alignedSlots(n uint64) []slot {
	const words = PacketSize / 8
	arena := make([]uint64, (n+1)*words)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(arena)))
	off := (PacketSize - base%PacketSize) % PacketSize / 8
	return unsafe.Slice((*slot)(unsafe.Pointer(&arena[off])), n)
}

// tryEnqueue is the enqueue primitive every packet type goes through.
//
// write fills the packet body; it must not touch the first 32-bit word,
// which tryEnqueue stamps Invalid before write and publishes after it.
//
// Multi-producer queues claim the write index with a CAS loop rather than a
// fetch-add: a fetch-add would consume an index even when the ring turns out
// to be full, leaving a slot no producer ever publishes.
func (q *Queue) tryEnqueue(header, setup uint16, write func(s *slot)) error {
	var index uint64
	if q.kind == KindSingle {
		if !q.producing.CompareAndSwapAcqRel(0, 1) {
			panic("aql: concurrent enqueue on single-producer queue")
		}
		index = q.writeIndex.LoadRelaxed()
		if index >= q.readIndex.LoadAcquire()+q.mask+1 {
			q.producing.StoreRelease(0)
			return ErrFull
		}
		q.writeIndex.StoreRelaxed(index + 1)
	} else {
		sw := spin.Wait{}
		for {
			index = q.writeIndex.LoadAcquire()
			if index >= q.readIndex.LoadAcquire()+q.mask+1 {
				return ErrFull
			}
			if q.writeIndex.CompareAndSwapAcqRel(index, index+1) {
				break
			}
			sw.Once()
		}
	}

	s := &q.slots[index&q.mask]
	s.invalidate()
	write(s)
	s.publish(header, setup)

	if q.kind == KindSingle {
		q.doorbell.Store(int64(index), Release)
		q.producing.StoreRelease(0)
		return nil
	}
	q.doorbell.StoreMax(int64(index), Release)
	return nil
}

// Cap returns the number of packet slots.
func (q *Queue) Cap() int {
	return int(q.mask + 1)
}

// Kind returns the producer discipline.
func (q *Queue) Kind() Kind {
	return q.kind
}

// Features returns the packet types the queue accepts besides barriers.
func (q *Queue) Features() Feature {
	return q.features
}

// PrivateSegmentSize returns the configured private segment size,
// SegmentSizeAuto if unset.
func (q *Queue) PrivateSegmentSize() uint32 {
	return q.privateSeg
}

// GroupSegmentSize returns the configured group segment size,
// SegmentSizeAuto if unset.
func (q *Queue) GroupSegmentSize() uint32 {
	return q.groupSeg
}

// Doorbell returns the signal producers ring after publishing a packet.
// Its value is the highest index published so far.
func (q *Queue) Doorbell() *Signal {
	return q.doorbell
}

// Runtime returns the runtime the queue was built on.
func (q *Queue) Runtime() *Runtime {
	return q.rt
}

// WriteIndex returns the next index a producer will claim.
func (q *Queue) WriteIndex() uint64 {
	return q.writeIndex.LoadAcquire()
}

// ReadIndex returns the next index the consumer will process.
func (q *Queue) ReadIndex() uint64 {
	return q.readIndex.LoadAcquire()
}

// Len returns the number of claimed and not yet consumed slots.
// The value is a snapshot and may be stale under concurrency.
func (q *Queue) Len() int {
	r := q.readIndex.LoadAcquire()
	w := q.writeIndex.LoadAcquire()
	if w < r {
		return 0
	}
	return int(w - r)
}

// SlotHeader returns the header currently stored in the slot index maps to.
func (q *Queue) SlotHeader(index uint64) Header {
	h, _ := q.slots[index&q.mask].load()
	return DecodeHeader(h)
}

// Destroy releases the packet arena and, for queues built with Build, the
// doorbell. Consumers must have stopped draining first. Destroy is idempotent.
func (q *Queue) Destroy() {
	if !q.destroyed.CompareAndSwapAcqRel(0, 1) {
		return
	}
	if q.ownsBell {
		q.rt.DestroySignal(q.doorbell)
	}
	q.slots = nil
	q.rt.releaseQueue()
	q.logger.Debug("aql: queue destroyed",
		"write_index", q.writeIndex.LoadAcquire(),
		"read_index", q.readIndex.LoadAcquire())
}
