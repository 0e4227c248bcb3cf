// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// Runtime is the explicit context shared by queues and signals.
//
// It allocates signals, resolves the handles stored in packets back to
// signals, and counts live queues. There is no package-level runtime:
// every queue holds a reference to the runtime it was built on.
//
// Example:
//
//	rt := aql.NewRuntime(1024)
//	defer rt.Close()
//
//	done, _ := rt.NewSignal(1)
//	q, _ := aql.New(256).SingleProducer().Build(rt)
//	defer q.Destroy()
type Runtime struct {
	_       pad
	queues  atomix.Int64
	_       pad
	closed  atomix.Bool
	_       pad
	signals signalTable
}

// NewRuntime creates a runtime able to hold maxSignals live signals.
// maxSignals rounds up to the next power of 2.
//
// Panics if maxSignals < 2.
func NewRuntime(maxSignals int) *Runtime {
	if maxSignals < 2 {
		panic("aql: maxSignals must be >= 2")
	}
	rt := &Runtime{}
	rt.signals.init(maxSignals)
	return rt
}

// Close marks the runtime as no longer alive.
//
// Close does not destroy queues or signals. Processing loops started with
// ProcessContext observe the closed runtime at their next poll and exit.
// New queues and signals can no longer be created.
func (rt *Runtime) Close() {
	rt.closed.Store(true)
}

// Alive reports whether Close has not been called.
func (rt *Runtime) Alive() bool {
	return !rt.closed.Load()
}

// LiveQueues returns the number of queues built on rt and not yet destroyed.
func (rt *Runtime) LiveQueues() int {
	return int(rt.queues.LoadAcquire())
}

// NewSignal allocates a signal with the given initial value.
// Returns ErrSignalExhausted when every handle is in use, ErrClosed after Close.
func (rt *Runtime) NewSignal(initial int64) (*Signal, error) {
	if !rt.Alive() {
		return nil, ErrClosed
	}
	s := &Signal{}
	s.value.StoreRelaxed(initial)
	if err := rt.signals.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// DestroySignal releases the signal's handle.
//
// Packets still referencing the handle resolve it to nil afterwards, so a
// signal must outlive every packet that names it. Destroying a nil or
// already destroyed signal is a no-op.
func (rt *Runtime) DestroySignal(s *Signal) {
	if s == nil {
		return
	}
	rt.signals.release(s)
}

// Signal resolves a handle. Returns nil for the zero handle and for handles
// of destroyed signals.
func (rt *Runtime) Signal(h SignalHandle) *Signal {
	return rt.signals.lookup(h)
}

func (rt *Runtime) acquireQueue() error {
	if !rt.Alive() {
		return ErrClosed
	}
	rt.queues.AddAcqRel(1)
	return nil
}

func (rt *Runtime) releaseQueue() {
	rt.queues.AddAcqRel(-1)
}

// signalTable maps handles to signals.
//
// A handle is (generation << 32 | index+1). The generation of an entry is
// bumped on release, so handles of destroyed signals stop resolving even
// after the index is reused.
type signalTable struct {
	entries []atomic.Pointer[Signal]
	gens    []atomix.Uint32
	free    *freeList
}

func (t *signalTable) init(n int) {
	t.free = newFreeList(n)
	n = t.free.cap()
	t.entries = make([]atomic.Pointer[Signal], n)
	t.gens = make([]atomix.Uint32, n)
}

func (t *signalTable) register(s *Signal) error {
	idx, ok := t.free.take()
	if !ok {
		return ErrSignalExhausted
	}
	gen := t.gens[idx].LoadAcquire()
	s.handle = SignalHandle(uint64(gen)<<32 | (idx + 1))
	t.entries[idx].Store(s)
	return nil
}

func (t *signalTable) release(s *Signal) {
	idx, ok := t.index(s.handle)
	if !ok {
		return
	}
	if t.entries[idx].CompareAndSwap(s, nil) {
		t.gens[idx].AddAcqRel(1)
		t.free.put(idx)
	}
}

func (t *signalTable) lookup(h SignalHandle) *Signal {
	idx, ok := t.index(h)
	if !ok {
		return nil
	}
	s := t.entries[idx].Load()
	if s == nil || s.handle != h {
		return nil
	}
	return s
}

func (t *signalTable) index(h SignalHandle) (uint64, bool) {
	lo := uint64(uint32(h))
	if lo == 0 || lo > uint64(len(t.entries)) {
		return 0, false
	}
	return lo - 1, true
}
