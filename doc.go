// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package aql provides user-mode packet queues in the HSA Architected
// Queuing Language (AQL) format.
//
// A queue is a bounded ring of 64-byte packet slots. Producers submit kernel
// dispatch, agent dispatch and barrier packets without taking a lock;
// consumers observe them through a doorbell signal and report completion by
// decrementing the completion signal each packet names.
//
// # Quick Start
//
// Every queue and signal belongs to an explicit [Runtime]:
//
//	rt := aql.NewRuntime(1024)
//	defer rt.Close()
//
//	q, err := aql.New(256).SingleProducer().Build(rt)
//	if err != nil {
//	    return err
//	}
//	defer q.Destroy()
//
// # Enqueue
//
// Each enqueue claims a write index, fills the slot body, publishes the
// header with a single release store and rings the doorbell:
//
//	done, _ := rt.NewSignal(1)
//	d := aql.DispatchDescriptor{
//	    WorkgroupSize: aql.Dim3[uint16]{X: 64, Y: 1, Z: 1},
//	    GridSize:      aql.Dim3[uint32]{X: 4096, Y: 1, Z: 1},
//	    KernelObject:  code,
//	    KernelArgs:    args,
//	    Completion:    done,
//	    ReleaseScope:  aql.FenceSystem,
//	}
//	if err := q.TryEnqueueKernelDispatch(&d); err != nil {
//	    return err
//	}
//	done.WaitForZero(aql.Forever, aql.WaitBlocked)
//
// Descriptors are validated before a slot is claimed, so a rejected packet
// leaves the ring untouched.
//
// # Consumer Loop
//
// A [SoftQueue] is drained in software. The handler sees every packet in
// write order; the loop decrements the completion signal and retires the
// slot after the handler returns:
//
//	bell, _ := rt.NewSignal(-1)
//	sq, _ := aql.New(64).AgentDispatch().BuildSoft(rt, bell)
//
//	go sq.Process(func(p aql.Packet) aql.Result {
//	    a := p.AgentDispatch()
//	    if a == nil {
//	        return aql.Continue()
//	    }
//	    if a.Type == opStop {
//	        return aql.Exit(nil)
//	    }
//	    serve(a.Type, a.Arg, a.ReturnAddress)
//	    return aql.Continue()
//	})
//
// [SoftQueue.ProcessContext] bounds every wait and returns once the context
// is done or the runtime is closed.
//
// # Barriers
//
// Barrier packets hold up to [MaxBarrierDeps] dependency signals. Packets
// behind a barrier-AND start after every dependency reached zero, packets
// behind a barrier-OR after any of them did:
//
//	err := q.TryEnqueueBarrierAnd([]*aql.Signal{upload, prev}, nil)
//
// Larger dependency sets are split by the caller:
//
//	for deps := range aql.DependencySet(all).Chunks() {
//	    if err := q.TryEnqueueBarrierAnd(deps, nil); err != nil {
//	        return err
//	    }
//	}
//
// # Error Handling
//
// A full ring returns [ErrFull], an alias of [iox.ErrWouldBlock]. The queue
// never retries; the caller decides:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.TryEnqueueKernelDispatch(&d)
//	    if err == nil {
//	        break
//	    }
//	    if !aql.IsFull(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// Malformed requests return [ErrWorkgroupDimSize], [ErrGridDimSize],
// [ErrTooManyDeps] or [ErrUnsupported], which are not retryable.
//
//	aql.IsFull(err)        // true if the ring is full
//	aql.IsSemantic(err)    // true if control flow signal
//	aql.IsNonFailure(err)  // true if nil or ErrFull
//
// # Capacity
//
// Capacity rounds up to the next power of 2:
//
//	aql.New(4)     // 4 slots
//	aql.New(1000)  // 1024 slots
//
// Minimum capacity is 2. Panic if capacity < 2.
//
// # Thread Safety
//
//   - KindSingle: one producer goroutine at a time, enforced by a panic
//   - KindMulti: any number of producer goroutines
//   - SoftQueue: one processing loop at a time, enforced by a panic
//
// Signals are safe for concurrent use from any goroutine.
//
// # Race Detection
//
// Packet bodies are plain memory ordered by the release store of the header
// word and the acquire load on the consumer side. The race detector cannot
// observe that happens-before edge and reports false positives, so tests
// exercising concurrent producers and consumers are skipped when
// [RaceEnabled] is set.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions and
// [golang.org/x/sys/unix] for futex waits on Linux.
package aql
