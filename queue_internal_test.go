// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"errors"
	"testing"
)

func singleProducerQueue(t *testing.T, capacity int) *Queue {
	t.Helper()
	rt := NewRuntime(4)
	t.Cleanup(rt.Close)
	q, err := New(capacity).SingleProducer().Build(rt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(q.Destroy)
	return q
}

func testDispatch() *DispatchDescriptor {
	return &DispatchDescriptor{
		WorkgroupSize: Dim3[uint16]{X: 8, Y: 1, Z: 1},
		GridSize:      Dim3[uint32]{X: 256, Y: 1, Z: 1},
	}
}

func TestSingleProducerConcurrentEnqueuePanics(t *testing.T) {
	q := singleProducerQueue(t, 4)

	// Another producer is inside tryEnqueue
	q.producing.StoreRelease(1)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("TryEnqueueKernelDispatch: expected panic")
		}
		if msg, _ := r.(string); msg != "aql: concurrent enqueue on single-producer queue" {
			t.Fatalf("panic: got %v", r)
		}
		if q.WriteIndex() != 0 {
			t.Fatalf("WriteIndex after panic: got %d, want 0", q.WriteIndex())
		}
	}()
	q.TryEnqueueKernelDispatch(testDispatch())
}

func TestSingleProducerReleasesOwnership(t *testing.T) {
	q := singleProducerQueue(t, 2)
	d := testDispatch()

	for i := range 2 {
		if err := q.TryEnqueueKernelDispatch(d); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		if v := q.producing.LoadAcquire(); v != 0 {
			t.Fatalf("producing after success: got %d, want 0", v)
		}
	}

	if err := q.TryEnqueueKernelDispatch(d); !errors.Is(err, ErrFull) {
		t.Fatalf("enqueue on full: got %v, want ErrFull", err)
	}
	if v := q.producing.LoadAcquire(); v != 0 {
		t.Fatalf("producing after ErrFull: got %d, want 0", v)
	}

	// Validation fails before ownership is taken
	bad := testDispatch()
	bad.GridSize.Y = 0
	if err := q.TryEnqueueKernelDispatch(bad); !errors.Is(err, ErrGridDimSize) {
		t.Fatalf("enqueue invalid: got %v, want ErrGridDimSize", err)
	}
	if v := q.producing.LoadAcquire(); v != 0 {
		t.Fatalf("producing after validation error: got %d, want 0", v)
	}
}
