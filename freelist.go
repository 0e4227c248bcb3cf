// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aql

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// freeList hands out signal table indices and takes them back.
//
// It is a bounded ring with exactly one entry per index, so it can never
// overflow. Each entry packs a 32-bit turn in the high half and the index in
// the low half: turn == pos means the entry is free for the putter at pos,
// turn == pos+1 means it holds the index for the taker at pos. Publishing
// turn and index in one word needs no separate payload store.
type freeList struct {
	_       pad
	tail    atomix.Uint64 // next put position
	_       pad
	head    atomix.Uint64 // next take position
	_       pad
	entries []atomix.Uint64
	mask    uint64
}

// newFreeList creates a free list preloaded with the indices [0, n), where n
// is capacity rounded up to the next power of 2.
func newFreeList(capacity int) *freeList {
	n := uint64(roundToPow2(capacity))
	l := &freeList{
		entries: make([]atomix.Uint64, n),
		mask:    n - 1,
	}
	// Position i holds index i, ready for the taker at i.
	for i := range n {
		l.entries[i].StoreRelaxed(packEntry(uint32(i+1), uint32(i)))
	}
	l.tail.StoreRelease(n)
	return l
}

func packEntry(turn, idx uint32) uint64 {
	return uint64(turn)<<32 | uint64(idx)
}

// turnLag reports how far an entry's turn is behind want; negative when ahead.
func turnLag(entry uint64, want uint64) int32 {
	return int32(uint32(want) - uint32(entry>>32))
}

// put returns idx to the list. Only indices obtained from take may be put.
func (l *freeList) put(idx uint64) {
	sw := spin.Wait{}
	for {
		pos := l.tail.LoadAcquire()
		e := &l.entries[pos&l.mask]
		lag := turnLag(e.LoadAcquire(), pos)
		switch {
		case lag == 0:
			if l.tail.CompareAndSwapAcqRel(pos, pos+1) {
				e.StoreRelease(packEntry(uint32(pos+1), uint32(idx)))
				return
			}
		case lag > 0:
			// The taker of the previous round has not cleared the entry yet.
			sw.Once()
		}
	}
}

// take removes a free index. ok is false when every index is in use.
func (l *freeList) take() (idx uint64, ok bool) {
	sw := spin.Wait{}
	for {
		pos := l.head.LoadAcquire()
		e := &l.entries[pos&l.mask]
		v := e.LoadAcquire()
		lag := turnLag(v, pos+1)
		switch {
		case lag == 0:
			if l.head.CompareAndSwapAcqRel(pos, pos+1) {
				e.StoreRelease(packEntry(uint32(pos+uint64(len(l.entries))), 0))
				return uint64(uint32(v)), true
			}
		case lag > 0:
			if l.tail.LoadAcquire() == pos {
				return 0, false
			}
			// A putter claimed pos and is about to publish.
			sw.Once()
		}
	}
}

// cap returns the number of indices the list manages.
func (l *freeList) cap() int {
	return len(l.entries)
}
