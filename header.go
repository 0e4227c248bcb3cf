// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import "strconv"

// PacketType identifies the format of a packet slot.
// Values follow the HSA packet type numbering.
type PacketType uint8

const (
	PacketVendor PacketType = iota
	PacketInvalid
	PacketKernelDispatch
	PacketBarrierAnd
	PacketAgentDispatch
	PacketBarrierOr
)

func (t PacketType) String() string {
	switch t {
	case PacketVendor:
		return "vendor"
	case PacketInvalid:
		return "invalid"
	case PacketKernelDispatch:
		return "kernel-dispatch"
	case PacketBarrierAnd:
		return "barrier-and"
	case PacketAgentDispatch:
		return "agent-dispatch"
	case PacketBarrierOr:
		return "barrier-or"
	}
	return "packet(" + strconv.Itoa(int(t)) + ")"
}

// FenceScope is the memory visibility domain a packet fence applies to.
type FenceScope uint8

const (
	FenceNone FenceScope = iota
	FenceAgent
	FenceSystem
)

func (s FenceScope) String() string {
	switch s {
	case FenceNone:
		return "none"
	case FenceAgent:
		return "agent"
	case FenceSystem:
		return "system"
	}
	return "scope(" + strconv.Itoa(int(s)) + ")"
}

// Header bit layout (hsa_packet_header_t).
const (
	headerTypeShift    = 0
	headerTypeMask     = 0xff
	headerBarrierShift = 8
	headerAcquireShift = 9
	headerReleaseShift = 11
	fenceScopeMask     = 0x3
)

// setupDimensionsShift positions the dispatch dimension count in the
// kernel dispatch setup field.
const setupDimensionsShift = 0

// invalidHeader is stamped into a slot before and after its occupancy.
const invalidHeader = uint16(PacketInvalid) << headerTypeShift

// Header is the decoded form of the 16-bit packet header.
type Header struct {
	Type    PacketType
	Acquire FenceScope
	Release FenceScope
	Ordered bool // barrier bit: wait for preceding packets to complete
}

// EncodeHeader packs a packet header.
//
// The type occupies bits 0-7, the ordered (barrier) flag bit 8, the acquire
// fence scope bits 9-10 and the release fence scope bits 11-12.
func EncodeHeader(typ PacketType, acquire, release FenceScope, ordered bool) uint16 {
	h := uint16(typ) << headerTypeShift
	h |= uint16(acquire&fenceScopeMask) << headerAcquireShift
	h |= uint16(release&fenceScopeMask) << headerReleaseShift
	if ordered {
		h |= 1 << headerBarrierShift
	}
	return h
}

// DecodeHeader unpacks a 16-bit packet header.
func DecodeHeader(h uint16) Header {
	return Header{
		Type:    PacketType(h >> headerTypeShift & headerTypeMask),
		Acquire: FenceScope(h >> headerAcquireShift & fenceScopeMask),
		Release: FenceScope(h >> headerReleaseShift & fenceScopeMask),
		Ordered: h>>headerBarrierShift&1 != 0,
	}
}

// Encode packs h. It is the inverse of DecodeHeader.
func (h Header) Encode() uint16 {
	return EncodeHeader(h.Type, h.Acquire, h.Release, h.Ordered)
}
