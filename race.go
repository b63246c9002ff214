// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfc

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent stress tests for Pool, ArrayQueue, and
// LinkQueue, all of which rely on cross-variable acquire/release orderings
// the race detector cannot observe and will flag as false positives.
const RaceEnabled = true
