// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

// Dim3 is a three-dimensional size.
type Dim3[T uint16 | uint32] struct {
	X, Y, Z T
}

func (d Dim3[T]) hasZero() bool {
	return d.X == 0 || d.Y == 0 || d.Z == 0
}

// DispatchDescriptor describes a kernel launch.
//
// The kernel object and its segment sizes come from a finished code object;
// the queue does not interpret KernelArgs, it only forwards the address.
type DispatchDescriptor struct {
	WorkgroupSize      Dim3[uint16]
	GridSize           Dim3[uint32]
	PrivateSegmentSize uint32
	GroupSegmentSize   uint32
	KernelObject       uint64
	KernelArgs         uint64  // Kernarg buffer address
	Completion         *Signal // Decremented by the consumer; nil for none
	Ordered            bool
	AcquireScope       FenceScope
	ReleaseScope       FenceScope
}

// Validate checks every dimension is non-zero.
// Workgroup dimensions are checked before grid dimensions.
func (d *DispatchDescriptor) Validate() error {
	if d.WorkgroupSize.hasZero() {
		return ErrWorkgroupDimSize
	}
	if d.GridSize.hasZero() {
		return ErrGridDimSize
	}
	return nil
}

// Dimensions returns the number of grid dimensions in use: 0 for a 1×1×1
// grid, 1 when only X exceeds 1, 2 when Z is 1, otherwise 3.
func (d *DispatchDescriptor) Dimensions() uint16 {
	g := d.GridSize
	switch {
	case g.X == 1 && g.Y == 1 && g.Z == 1:
		return 0
	case g.Y == 1 && g.Z == 1:
		return 1
	case g.Z == 1:
		return 2
	}
	return 3
}

// TryEnqueueKernelDispatch publishes a kernel dispatch packet.
//
// The descriptor is validated before a write index is claimed: a failed
// call leaves the write index and occupancy unchanged.
// Returns ErrUnsupported if the queue does not accept kernel dispatches,
// ErrWorkgroupDimSize or ErrGridDimSize for a zero dimension, ErrFull if
// no slot is free.
func (q *Queue) TryEnqueueKernelDispatch(d *DispatchDescriptor) error {
	if q.features&FeatureKernelDispatch == 0 {
		return ErrUnsupported
	}
	if err := d.Validate(); err != nil {
		return err
	}

	header := EncodeHeader(PacketKernelDispatch, d.AcquireScope, d.ReleaseScope, d.Ordered)
	setup := d.Dimensions() << setupDimensionsShift
	return q.tryEnqueue(header, setup, func(s *slot) {
		p := s.kernelDispatch()
		p.WorkgroupSizeX = d.WorkgroupSize.X
		p.WorkgroupSizeY = d.WorkgroupSize.Y
		p.WorkgroupSizeZ = d.WorkgroupSize.Z
		p.GridSizeX = d.GridSize.X
		p.GridSizeY = d.GridSize.Y
		p.GridSizeZ = d.GridSize.Z
		p.PrivateSegmentSize = d.PrivateSegmentSize
		p.GroupSegmentSize = d.GroupSegmentSize
		p.KernelObject = d.KernelObject
		p.KernargAddress = d.KernelArgs
		p.CompletionSignal = d.Completion.Handle()
	})
}
