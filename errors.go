// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrFull indicates the ring has no free packet slot.
//
// ErrFull is raised before any slot is touched and before a write index is
// consumed. It is a control flow signal, not a failure: the caller decides
// whether and when to retry. The queue itself never retries.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.TryEnqueueKernelDispatch(&d)
//	    if err == nil {
//	        break
//	    }
//	    if !aql.IsFull(err) {
//	        return err // malformed request
//	    }
//	    backoff.Wait()
//	}
var ErrFull = iox.ErrWouldBlock

var (
	// ErrWorkgroupDimSize reports a kernel dispatch with a zero workgroup dimension.
	ErrWorkgroupDimSize = errors.New("aql: workgroup dimension is zero")

	// ErrGridDimSize reports a kernel dispatch with a zero grid dimension.
	ErrGridDimSize = errors.New("aql: grid dimension is zero")

	// ErrTooManyDeps reports a barrier with more than MaxBarrierDeps dependencies.
	// Callers chain larger dependency sets across several barrier packets.
	ErrTooManyDeps = errors.New("aql: too many barrier dependencies")

	// ErrUnsupported reports a packet type the queue was not created for.
	ErrUnsupported = errors.New("aql: packet type not enabled on queue")

	// ErrSignalExhausted reports that the runtime signal table has no free handle.
	ErrSignalExhausted = errors.New("aql: signal table exhausted")

	// ErrClosed reports use of a closed runtime.
	ErrClosed = errors.New("aql: runtime closed")
)

// IsFull reports whether err indicates a full queue.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsFull(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock].
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil and ErrFull.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
