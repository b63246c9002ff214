// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import "unsafe"

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing between hot atomics.
type pad [64]byte

// padShort is padding to fill a cache line after an 8-byte field.
type padShort [64 - 8]byte

// padPtr is padding to fill a cache line after a pointer-sized field.
type padPtr [64 - ptrSize]byte
