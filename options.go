// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"log/slog"
	"math"
	"strconv"
)

// SegmentSizeAuto lets the packet processor choose a segment size.
const SegmentSizeAuto = math.MaxUint32

// Kind is the producer discipline of a queue.
// Values follow the HSA queue type numbering.
type Kind uint8

const (
	// KindMulti queues accept concurrent producers.
	KindMulti Kind = iota
	// KindSingle queues accept one producer at a time and skip the
	// inter-producer ordering a multi-producer claim needs.
	KindSingle
)

func (k Kind) String() string {
	switch k {
	case KindMulti:
		return "multi"
	case KindSingle:
		return "single"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Feature is a set of packet types a queue accepts.
// Barrier packets are always accepted.
type Feature uint8

const (
	FeatureKernelDispatch Feature = 1 << iota
	FeatureAgentDispatch
)

// Options configures queue creation.
type Options struct {
	capacity           int // Rounds up to next power of 2
	kind               Kind
	features           Feature
	privateSegmentSize uint32
	groupSegmentSize   uint32
	logger             *slog.Logger
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Kernel queue for one submitting goroutine
//	q, err := aql.New(256).SingleProducer().Build(rt)
//
//	// Software-drained agent queue fed by many goroutines
//	bell, _ := rt.NewSignal(-1)
//	sq, err := aql.New(1024).AgentDispatch().BuildSoft(rt, bell)
type Builder struct {
	opts Options
}

// New creates a queue builder with the given slot count.
//
// Capacity rounds up to the next power of 2.
// For example, capacity=4 results in 4 slots, capacity=1000 in 1024.
// The default queue is multi-producer with automatic segment sizes.
//
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("aql: capacity must be >= 2")
	}
	return &Builder{opts: Options{
		capacity:           capacity,
		kind:               KindMulti,
		privateSegmentSize: SegmentSizeAuto,
		groupSegmentSize:   SegmentSizeAuto,
	}}
}

// SingleProducer declares that only one goroutine enqueues at a time.
func (b *Builder) SingleProducer() *Builder {
	b.opts.kind = KindSingle
	return b
}

// KernelDispatch enables kernel dispatch packets.
// A queue with no feature enabled accepts kernel dispatches.
func (b *Builder) KernelDispatch() *Builder {
	b.opts.features |= FeatureKernelDispatch
	return b
}

// AgentDispatch enables agent dispatch packets.
func (b *Builder) AgentDispatch() *Builder {
	b.opts.features |= FeatureAgentDispatch
	return b
}

// PrivateSegmentSize sets the per-work-item private segment size hint.
func (b *Builder) PrivateSegmentSize(n uint32) *Builder {
	b.opts.privateSegmentSize = n
	return b
}

// GroupSegmentSize sets the per-workgroup group segment size hint.
func (b *Builder) GroupSegmentSize(n uint32) *Builder {
	b.opts.groupSegmentSize = n
	return b
}

// Logger sets the logger for queue lifecycle events. Enqueue never logs.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.opts.logger = l
	return b
}

// Build creates a queue with a doorbell owned by the queue.
// The doorbell starts at -1: no packet is ready.
//
// Returns ErrClosed if rt is closed, ErrSignalExhausted if the doorbell
// cannot be allocated.
func (b *Builder) Build(rt *Runtime) (*Queue, error) {
	bell, err := rt.NewSignal(-1)
	if err != nil {
		return nil, err
	}
	q, err := newQueue(rt, b.opts, bell, true)
	if err != nil {
		rt.DestroySignal(bell)
		return nil, err
	}
	return q, nil
}

// BuildSoft creates a software-drained queue rung through doorbell.
//
// The doorbell is borrowed: it must outlive the queue and should start at
// -1. Panics if doorbell is nil.
func (b *Builder) BuildSoft(rt *Runtime, doorbell *Signal) (*SoftQueue, error) {
	if doorbell == nil {
		panic("aql: BuildSoft requires a doorbell signal")
	}
	q, err := newQueue(rt, b.opts, doorbell, false)
	if err != nil {
		return nil, err
	}
	return &SoftQueue{Queue: q}, nil
}
