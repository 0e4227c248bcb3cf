// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import "golang.org/x/sys/cpu"

// Producer is the interface for submitting packets to a queue.
//
// Every operation is non-blocking: it either publishes one packet and
// rings the doorbell, or returns an error without having touched the ring.
// ErrFull is retryable; validation errors are not.
//
// Thread safety depends on the queue kind:
//   - KindSingle: one producer goroutine at a time
//   - KindMulti: any number of producer goroutines
//
// Example:
//
//	var p aql.Producer = q
//	d := aql.DispatchDescriptor{
//	    WorkgroupSize: aql.Dim3[uint16]{X: 64, Y: 1, Z: 1},
//	    GridSize:      aql.Dim3[uint32]{X: 4096, Y: 1, Z: 1},
//	    KernelObject:  code,
//	}
//	if err := p.TryEnqueueKernelDispatch(&d); aql.IsFull(err) {
//	    // Queue is full - caller decides whether to retry
//	}
type Producer interface {
	// TryEnqueueKernelDispatch validates d and publishes a kernel dispatch packet.
	TryEnqueueKernelDispatch(d *DispatchDescriptor) error

	// TryEnqueueAgentDispatch publishes an agent dispatch packet.
	TryEnqueueAgentDispatch(a *AgentDispatch) error

	// TryEnqueueBarrierAnd publishes a barrier that completes once every
	// dependency signal reaches zero.
	TryEnqueueBarrierAnd(deps []*Signal, completion *Signal) error

	// TryEnqueueBarrierOr publishes a barrier that completes once any
	// dependency signal reaches zero.
	TryEnqueueBarrierOr(deps []*Signal, completion *Signal) error

	// Cap returns the number of packet slots.
	Cap() int
}

var (
	_ Producer = (*Queue)(nil)
	_ Producer = (*SoftQueue)(nil)
)

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad cpu.CacheLinePad
