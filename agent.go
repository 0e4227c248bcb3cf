// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

// AgentDispatch describes a function call request for another agent.
//
// Type selects the function on the consumer side, Args are passed
// unchanged, and ReturnAddress names where the consumer writes results.
// All three are opaque to the queue.
type AgentDispatch struct {
	Type          uint16
	Args          [4]uint64
	ReturnAddress uint64
	Completion    *Signal // Decremented by the consumer; nil for none
	Ordered       bool
	AcquireScope  FenceScope
	ReleaseScope  FenceScope
}

// TryEnqueueAgentDispatch publishes an agent dispatch packet.
// Returns ErrUnsupported if the queue does not accept agent dispatches,
// ErrFull if no slot is free.
func (q *Queue) TryEnqueueAgentDispatch(a *AgentDispatch) error {
	if q.features&FeatureAgentDispatch == 0 {
		return ErrUnsupported
	}

	header := EncodeHeader(PacketAgentDispatch, a.AcquireScope, a.ReleaseScope, a.Ordered)
	// Type lives in the upper half of the header word and is published with it.
	return q.tryEnqueue(header, a.Type, func(s *slot) {
		p := s.agentDispatch()
		p.ReturnAddress = a.ReturnAddress
		p.Arg = a.Args
		p.CompletionSignal = a.Completion.Handle()
	})
}
