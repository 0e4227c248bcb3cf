// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package aql

import (
	"math"
	"time"
	"unsafe"

	"code.hybscloud.com/atomix"
	"golang.org/x/sys/unix"
)

const (
	futexWaitPrivate = 0 | 128 // FUTEX_WAIT | FUTEX_PRIVATE_FLAG
	futexWakePrivate = 1 | 128 // FUTEX_WAKE | FUTEX_PRIVATE_FLAG
)

// futexWait sleeps while *addr == val, at most timeout.
// Spurious returns are allowed; callers re-check their condition.
func futexWait(addr *atomix.Uint32, val uint32, timeout time.Duration) {
	var ts *unix.Timespec
	if timeout != Forever {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)), futexWaitPrivate,
		uintptr(val), uintptr(unsafe.Pointer(ts)), 0, 0)
}

// futexWake wakes every goroutine sleeping on addr.
func futexWake(addr *atomix.Uint32) {
	unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)), futexWakePrivate,
		math.MaxInt32, 0, 0, 0)
}
