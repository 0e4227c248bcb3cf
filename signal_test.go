// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/aql"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newRuntime(t *testing.T, maxSignals int) *aql.Runtime {
	t.Helper()
	rt := aql.NewRuntime(maxSignals)
	t.Cleanup(rt.Close)
	return rt
}

func newSignal(t *testing.T, rt *aql.Runtime, initial int64) *aql.Signal {
	t.Helper()
	s, err := rt.NewSignal(initial)
	if err != nil {
		t.Fatalf("NewSignal(%d): %v", initial, err)
	}
	return s
}

// =============================================================================
// Signal Operations
// =============================================================================

func TestSignalOps(t *testing.T) {
	rt := newRuntime(t, 16)
	s := newSignal(t, rt, 5)

	if v := s.Load(aql.Acquire); v != 5 {
		t.Fatalf("Load: got %d, want 5", v)
	}
	if prev := s.Add(3, aql.AcqRel); prev != 5 {
		t.Fatalf("Add: got prev %d, want 5", prev)
	}
	if prev := s.Subtract(2, aql.Release); prev != 8 {
		t.Fatalf("Subtract: got prev %d, want 8", prev)
	}
	if prev := s.Exchange(-1, aql.AcqRel); prev != 6 {
		t.Fatalf("Exchange: got prev %d, want 6", prev)
	}
	if v := s.Load(aql.Relaxed); v != -1 {
		t.Fatalf("Load after Exchange: got %d, want -1", v)
	}

	// CompareAndSwap returns the observed value
	if got := s.CompareAndSwap(-1, 10, aql.AcqRel); got != -1 {
		t.Fatalf("CompareAndSwap success: got %d, want -1", got)
	}
	if got := s.CompareAndSwap(-1, 20, aql.AcqRel); got != 10 {
		t.Fatalf("CompareAndSwap failure: got %d, want 10", got)
	}
	if v := s.Load(aql.Acquire); v != 10 {
		t.Fatalf("Load after failed CAS: got %d, want 10", v)
	}

	s.Store(0, aql.Relaxed)
	if v := s.Load(aql.Acquire); v != 0 {
		t.Fatalf("Store: got %d, want 0", v)
	}
}

func TestSignalStoreMax(t *testing.T) {
	rt := newRuntime(t, 16)
	s := newSignal(t, rt, -1)

	s.StoreMax(3, aql.Release)
	s.StoreMax(1, aql.Release)
	if v := s.Load(aql.Acquire); v != 3 {
		t.Fatalf("StoreMax: got %d, want 3", v)
	}
	s.StoreMax(7, aql.Release)
	if v := s.Load(aql.Acquire); v != 7 {
		t.Fatalf("StoreMax: got %d, want 7", v)
	}
}

func TestSignalWaitConditions(t *testing.T) {
	rt := newRuntime(t, 16)
	s := newSignal(t, rt, 4)

	tests := []struct {
		cond   aql.Condition
		target int64
		holds  bool
	}{
		{aql.CondEqual, 4, true},
		{aql.CondEqual, 3, false},
		{aql.CondNotEqual, 3, true},
		{aql.CondNotEqual, 4, false},
		{aql.CondLess, 5, true},
		{aql.CondLess, 4, false},
		{aql.CondLessEqual, 4, true},
		{aql.CondLessEqual, 3, false},
		{aql.CondGreater, 3, true},
		{aql.CondGreater, 4, false},
		{aql.CondGreaterEqual, 4, true},
		{aql.CondGreaterEqual, 5, false},
	}
	for i, tt := range tests {
		// A zero timeout checks once and returns the observed value
		start := time.Now()
		v := s.WaitFor(tt.cond, tt.target, aql.Acquire, 0, aql.WaitBlocked)
		if v != 4 {
			t.Fatalf("case %d: WaitFor: got %d, want 4", i, v)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("case %d: zero timeout waited %v", i, elapsed)
		}
	}
}

func TestSignalWaitTimeout(t *testing.T) {
	rt := newRuntime(t, 16)
	s := newSignal(t, rt, 1)

	for _, style := range []aql.WaitStyle{aql.WaitBlocked, aql.WaitSpin} {
		timeout := 20 * time.Millisecond
		start := time.Now()
		v := s.WaitFor(aql.CondEqual, 0, aql.Acquire, timeout, style)
		elapsed := time.Since(start)
		if v != 1 {
			t.Fatalf("style %d: WaitFor: got %d, want 1", style, v)
		}
		if elapsed < timeout {
			t.Fatalf("style %d: returned after %v, before timeout %v", style, elapsed, timeout)
		}
		if s.WaitForZero(timeout, style) {
			t.Fatalf("style %d: WaitForZero: got true, want false", style)
		}
	}
}

func TestSignalWaitWakes(t *testing.T) {
	if aql.RaceEnabled {
		t.Skip("skip: signal wake test shares atomix values across goroutines")
	}

	rt := newRuntime(t, 16)
	for _, style := range []aql.WaitStyle{aql.WaitBlocked, aql.WaitSpin} {
		s := newSignal(t, rt, 3)
		go func() {
			for range 3 {
				time.Sleep(5 * time.Millisecond)
				s.Subtract(1, aql.Release)
			}
		}()

		if !s.WaitForZero(5*time.Second, style) {
			t.Fatalf("style %d: WaitForZero timed out at %d", style, s.Load(aql.Acquire))
		}
		rt.DestroySignal(s)
	}
}

func TestSignalWaitForever(t *testing.T) {
	if aql.RaceEnabled {
		t.Skip("skip: signal wake test shares atomix values across goroutines")
	}

	rt := newRuntime(t, 16)
	s := newSignal(t, rt, -1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Store(42, aql.Release)
	}()

	if v := s.WaitFor(aql.CondGreaterEqual, 42, aql.Acquire, aql.Forever, aql.WaitBlocked); v != 42 {
		t.Fatalf("WaitFor: got %d, want 42", v)
	}
}

// =============================================================================
// Runtime Handles
// =============================================================================

func TestRuntimeHandles(t *testing.T) {
	rt := newRuntime(t, 16)
	a := newSignal(t, rt, 0)
	b := newSignal(t, rt, 0)

	if a.Handle() == 0 || b.Handle() == 0 {
		t.Fatalf("Handle: got zero handle")
	}
	if a.Handle() == b.Handle() {
		t.Fatalf("Handle: two live signals share %d", a.Handle())
	}
	if got := rt.Signal(a.Handle()); got != a {
		t.Fatalf("Signal(a): got %p, want %p", got, a)
	}
	if got := rt.Signal(0); got != nil {
		t.Fatalf("Signal(0): got %p, want nil", got)
	}

	var nilSignal *aql.Signal
	if nilSignal.Handle() != 0 {
		t.Fatalf("nil Handle: got %d, want 0", nilSignal.Handle())
	}
}

func TestRuntimeStaleHandle(t *testing.T) {
	rt := newRuntime(t, 2)
	a := newSignal(t, rt, 0)
	stale := a.Handle()

	rt.DestroySignal(a)
	if got := rt.Signal(stale); got != nil {
		t.Fatalf("Signal(destroyed): got %p, want nil", got)
	}

	// Reuse every index; the stale handle must still not resolve
	b := newSignal(t, rt, 0)
	c := newSignal(t, rt, 0)
	if got := rt.Signal(stale); got != nil {
		t.Fatalf("Signal(stale after reuse): got %p, want nil", got)
	}
	if rt.Signal(b.Handle()) != b || rt.Signal(c.Handle()) != c {
		t.Fatalf("Signal: live handles do not resolve")
	}

	// Destroying twice or destroying nil is a no-op
	rt.DestroySignal(a)
	rt.DestroySignal(nil)
	if rt.Signal(b.Handle()) != b {
		t.Fatalf("Signal(b) after double destroy: lost")
	}
}

func TestRuntimeSignalExhausted(t *testing.T) {
	rt := newRuntime(t, 3) // rounds up to 4
	signals := make([]*aql.Signal, 0, 4)
	for range 4 {
		signals = append(signals, newSignal(t, rt, 0))
	}
	if _, err := rt.NewSignal(0); !errors.Is(err, aql.ErrSignalExhausted) {
		t.Fatalf("NewSignal on full table: got %v, want ErrSignalExhausted", err)
	}

	rt.DestroySignal(signals[2])
	if _, err := rt.NewSignal(0); err != nil {
		t.Fatalf("NewSignal after destroy: %v", err)
	}
}

func TestRuntimeClose(t *testing.T) {
	rt := aql.NewRuntime(8)
	if !rt.Alive() {
		t.Fatalf("Alive: got false before Close")
	}
	rt.Close()
	if rt.Alive() {
		t.Fatalf("Alive: got true after Close")
	}
	if _, err := rt.NewSignal(0); !errors.Is(err, aql.ErrClosed) {
		t.Fatalf("NewSignal after Close: got %v, want ErrClosed", err)
	}
	if _, err := aql.New(4).Build(rt); !errors.Is(err, aql.ErrClosed) {
		t.Fatalf("Build after Close: got %v, want ErrClosed", err)
	}
}

func TestNewRuntimePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("NewRuntime(1): expected panic")
		}
	}()
	aql.NewRuntime(1)
}
