// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package aql

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent producer/consumer tests, whose packet
// bodies are ordered by the header word and reported as false positives.
const RaceEnabled = true
