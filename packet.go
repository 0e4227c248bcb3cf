// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// PacketSize is the size in bytes of every packet slot.
const PacketSize = 64

// MaxBarrierDeps is the number of dependency signals a barrier packet holds.
const MaxBarrierDeps = 5

// KernelDispatchPacket is the wire layout of a kernel dispatch packet.
//
// Header and Setup together form the first 32-bit word, which is only ever
// written atomically by the queue. Pointer-width fields are 64-bit.
type KernelDispatchPacket struct {
	Header             uint16
	Setup              uint16
	WorkgroupSizeX     uint16
	WorkgroupSizeY     uint16
	WorkgroupSizeZ     uint16
	reserved0          uint16
	GridSizeX          uint32
	GridSizeY          uint32
	GridSizeZ          uint32
	PrivateSegmentSize uint32
	GroupSegmentSize   uint32
	KernelObject       uint64
	KernargAddress     uint64
	reserved2          uint64
	CompletionSignal   SignalHandle
}

// Dimensions returns the dispatch dimension count encoded in Setup.
func (p *KernelDispatchPacket) Dimensions() uint16 {
	return p.Setup >> setupDimensionsShift & 0x3
}

// BarrierPacket is the wire layout shared by barrier-AND and barrier-OR packets.
// Unused dependency slots hold the zero handle.
type BarrierPacket struct {
	Header           uint16
	reserved0        uint16
	reserved1        uint32
	DepSignal        [MaxBarrierDeps]SignalHandle
	reserved2        uint64
	CompletionSignal SignalHandle
}

// AgentDispatchPacket is the wire layout of an agent dispatch packet.
//
// Type shares the first 32-bit word with Header. ReturnAddress is chosen by
// the producer; the consumer writes results there.
type AgentDispatchPacket struct {
	Header           uint16
	Type             uint16
	reserved0        uint32
	ReturnAddress    uint64
	Arg              [4]uint64
	reserved2        uint64
	CompletionSignal SignalHandle
}

// slot is one 64-byte ring entry. Every packet format places its completion
// signal in the last word.
type slot [PacketSize / 8]uint64

func (s *slot) word() *atomix.Uint32 {
	return (*atomix.Uint32)(unsafe.Pointer(s))
}

// publish makes the slot visible to the consumer. It is the only ordered
// write of the protocol: the release store orders every preceding body
// write before the header.
func (s *slot) publish(header, setup uint16) {
	s.word().StoreRelease(uint32(header) | uint32(setup)<<16)
}

// invalidate erases the previous occupant's header before a body write.
func (s *slot) invalidate() {
	s.word().StoreRelease(uint32(invalidHeader))
}

// retire marks a consumed slot Invalid, keeping the setup half of the word.
func (s *slot) retire() {
	w := s.word().LoadRelaxed()
	s.word().StoreRelease(w&^0xffff | uint32(invalidHeader))
}

func (s *slot) load() (header, setup uint16) {
	w := s.word().LoadAcquire()
	return uint16(w), uint16(w >> 16)
}

func (s *slot) packetType() PacketType {
	h, _ := s.load()
	return PacketType(h >> headerTypeShift & headerTypeMask)
}

func (s *slot) completion() SignalHandle {
	return SignalHandle(s[len(s)-1])
}

func (s *slot) kernelDispatch() *KernelDispatchPacket {
	return (*KernelDispatchPacket)(unsafe.Pointer(s))
}

func (s *slot) barrier() *BarrierPacket {
	return (*BarrierPacket)(unsafe.Pointer(s))
}

func (s *slot) agentDispatch() *AgentDispatchPacket {
	return (*AgentDispatchPacket)(unsafe.Pointer(s))
}

// Packet is the consumer's view of a published ring slot.
//
// A Packet is valid only inside the Handler call that received it; the slot
// is retired and may be reused once the handler returns.
type Packet struct {
	s     *slot
	index uint64
	rt    *Runtime
}

// Index returns the packet's position in the queue's write order.
func (p Packet) Index() uint64 {
	return p.index
}

// Header returns the decoded packet header.
func (p Packet) Header() Header {
	h, _ := p.s.load()
	return DecodeHeader(h)
}

// Type returns the packet type.
func (p Packet) Type() PacketType {
	return p.s.packetType()
}

// Setup returns the upper half of the header word: dispatch dimensions for
// kernel dispatch packets, the function type for agent dispatch packets.
func (p Packet) Setup() uint16 {
	_, setup := p.s.load()
	return setup
}

// KernelDispatch returns the packet body, or nil if p is not a kernel dispatch.
func (p Packet) KernelDispatch() *KernelDispatchPacket {
	if p.Type() != PacketKernelDispatch {
		return nil
	}
	return p.s.kernelDispatch()
}

// Barrier returns the packet body, or nil if p is not a barrier-AND or barrier-OR.
func (p Packet) Barrier() *BarrierPacket {
	switch p.Type() {
	case PacketBarrierAnd, PacketBarrierOr:
		return p.s.barrier()
	}
	return nil
}

// AgentDispatch returns the packet body, or nil if p is not an agent dispatch.
func (p Packet) AgentDispatch() *AgentDispatchPacket {
	if p.Type() != PacketAgentDispatch {
		return nil
	}
	return p.s.agentDispatch()
}

// CompletionSignal resolves the packet's completion signal.
// Returns nil when the packet has none.
func (p Packet) CompletionSignal() *Signal {
	return p.rt.Signal(p.s.completion())
}
