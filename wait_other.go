// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package aql

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// futexWait backs off while *addr == val, at most timeout.
// Without a futex the waiter polls the wake sequence with adaptive backoff.
func futexWait(addr *atomix.Uint32, val uint32, timeout time.Duration) {
	var deadline time.Time
	if timeout != Forever {
		deadline = time.Now().Add(timeout)
	}
	backoff := iox.Backoff{}
	for addr.LoadAcquire() == val {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return
		}
		backoff.Wait()
	}
}

// futexWake is a no-op: polling waiters observe the sequence bump.
func futexWake(*atomix.Uint32) {}
