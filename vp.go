// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import "unsafe"

// ptrToWord and wordToPtr encode/decode a pointer as the 64-bit "pointer"
// half of a version-tagged pointer (VP) stored in an atomix.Uint128: one
// word holds the version (ABA counter), the other holds the pointer.
//
// This is the same technique MPMCPtr uses to pack an unsafe.Pointer into a
// Uint128 half, round-tripped via *(*unsafe.Pointer)(unsafe.Pointer(&word)).
// It is safe here because every pointer ever encoded this way refers into a
// Pool's nodes slice, which the Pool keeps alive for as long as the Pool
// itself is reachable — the uint64 encoding never becomes the only
// reference keeping the memory alive.
func ptrToWord[T any](p *T) uint64 {
	return uint64(uintptr(unsafe.Pointer(p)))
}

func wordToPtr[T any](w uint64) *T {
	if w == 0 {
		return nil
	}
	return (*T)(*(*unsafe.Pointer)(unsafe.Pointer(&w)))
}
