// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"math"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SignalHandle is the opaque identifier stored in packets to reference a
// Signal. The zero handle is the null signal.
type SignalHandle uint64

// MemoryOrder selects the ordering of a signal operation.
// Callers choose the weakest ordering sufficient for correctness.
type MemoryOrder uint8

const (
	Relaxed MemoryOrder = iota
	Acquire
	Release
	AcqRel
)

// Condition is the comparison a signal wait applies between the observed
// value and the target.
type Condition uint8

const (
	CondEqual Condition = iota
	CondNotEqual
	CondLess
	CondLessEqual
	CondGreater
	CondGreaterEqual
)

func (c Condition) holds(v, target int64) bool {
	switch c {
	case CondEqual:
		return v == target
	case CondNotEqual:
		return v != target
	case CondLess:
		return v < target
	case CondLessEqual:
		return v <= target
	case CondGreater:
		return v > target
	case CondGreaterEqual:
		return v >= target
	}
	return false
}

// WaitStyle selects how a waiting goroutine passes time.
type WaitStyle uint8

const (
	// WaitBlocked spins briefly, then sleeps until the signal changes.
	WaitBlocked WaitStyle = iota
	// WaitSpin never sleeps.
	WaitSpin
)

// Forever is the timeout of a wait that only returns once its condition holds.
const Forever = time.Duration(math.MaxInt64)

// blockedSpins bounds the spin phase of a WaitBlocked wait.
const blockedSpins = 64

// Signal is an atomically observable 64-bit value.
//
// Signals serve as queue doorbells and as completion notifications. They are
// allocated by a Runtime and referenced from packets by handle; a queue only
// borrows the signals it is given. Mutation happens exclusively through the
// atomic operations below.
//
// Read-modify-write operations are performed with at least acquire-release
// ordering regardless of the requested order.
type Signal struct {
	_       pad
	value   atomix.Int64
	seq     atomix.Uint32 // wake sequence, bumped on every mutation
	waiters atomix.Int32
	_       pad
	handle  SignalHandle
}

// Handle returns the signal's handle. A nil signal has the zero handle.
func (s *Signal) Handle() SignalHandle {
	if s == nil {
		return 0
	}
	return s.handle
}

// Load returns the current value.
func (s *Signal) Load(order MemoryOrder) int64 {
	if order == Relaxed {
		return s.value.LoadRelaxed()
	}
	return s.value.LoadAcquire()
}

// Store sets the value and wakes waiters.
func (s *Signal) Store(v int64, order MemoryOrder) {
	if order == Relaxed {
		s.value.StoreRelaxed(v)
	} else {
		s.value.StoreRelease(v)
	}
	s.notify()
}

// Add adds delta to the value and returns the previous value.
func (s *Signal) Add(delta int64, order MemoryOrder) int64 {
	prev := s.value.AddAcqRel(delta) - delta
	s.notify()
	return prev
}

// Subtract subtracts delta from the value and returns the previous value.
func (s *Signal) Subtract(delta int64, order MemoryOrder) int64 {
	return s.Add(-delta, order)
}

// Exchange sets the value and returns the previous value.
func (s *Signal) Exchange(v int64, order MemoryOrder) int64 {
	for {
		prev := s.value.LoadAcquire()
		if s.value.CompareAndSwapAcqRel(prev, v) {
			s.notify()
			return prev
		}
	}
}

// CompareAndSwap sets the value to new if it equals old.
// Returns the observed value: old on success.
func (s *Signal) CompareAndSwap(old, new int64, order MemoryOrder) int64 {
	for {
		if s.value.CompareAndSwapAcqRel(old, new) {
			s.notify()
			return old
		}
		if cur := s.value.LoadAcquire(); cur != old {
			return cur
		}
	}
}

// StoreMax raises the value to v. A smaller v leaves the value unchanged.
//
// Multi-producer doorbells are rung with StoreMax so that a slow producer
// storing an older index cannot move the doorbell backwards.
func (s *Signal) StoreMax(v int64, order MemoryOrder) {
	for {
		cur := s.value.LoadAcquire()
		if cur >= v {
			return
		}
		if s.value.CompareAndSwapAcqRel(cur, v) {
			s.notify()
			return
		}
	}
}

// notify bumps the wake sequence and wakes sleeping waiters.
// The sequence bump is a full barrier between the value write and the
// waiter count read.
func (s *Signal) notify() {
	s.seq.Add(1)
	if s.waiters.Load() > 0 {
		futexWake(&s.seq)
	}
}

// WaitFor waits until cond holds between the value and target, or until
// timeout elapses. It returns the last observed value, which callers check
// against cond to tell success from timeout.
//
// A zero or negative timeout checks the condition once. Forever waits
// without a deadline.
func (s *Signal) WaitFor(cond Condition, target int64, order MemoryOrder, timeout time.Duration, style WaitStyle) int64 {
	v := s.Load(order)
	if cond.holds(v, target) || timeout <= 0 {
		return v
	}

	var deadline time.Time
	if timeout != Forever {
		deadline = time.Now().Add(timeout)
	}
	if style == WaitSpin {
		return s.spinFor(cond, target, order, deadline)
	}

	sw := spin.Wait{}
	for range blockedSpins {
		sw.Once()
		if v = s.Load(order); cond.holds(v, target) {
			return v
		}
	}

	for {
		seq := s.seq.Load()
		s.waiters.Add(1)
		if v = s.Load(order); cond.holds(v, target) {
			s.waiters.Add(-1)
			return v
		}
		remaining := Forever
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				s.waiters.Add(-1)
				return v
			}
		}
		futexWait(&s.seq, seq, remaining)
		s.waiters.Add(-1)
		if v = s.Load(order); cond.holds(v, target) {
			return v
		}
	}
}

func (s *Signal) spinFor(cond Condition, target int64, order MemoryOrder, deadline time.Time) int64 {
	sw := spin.Wait{}
	for i := 1; ; i++ {
		sw.Once()
		v := s.Load(order)
		if cond.holds(v, target) {
			return v
		}
		if i%blockedSpins == 0 && !deadline.IsZero() && time.Now().After(deadline) {
			return v
		}
	}
}

// WaitForZero waits until the value reaches zero.
// Reports whether it did before timeout elapsed.
func (s *Signal) WaitForZero(timeout time.Duration, style WaitStyle) bool {
	return s.WaitFor(CondEqual, 0, Acquire, timeout, style) == 0
}
