// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Node is an opaque handle to a Pool-owned slot. Its payload is accessed
// through Pool's Payload/Construct/Destruct/MoveOut operations; callers
// never read or write its fields directly.
type Node[T any] struct {
	next atomix.Uint128 // VP: lo=version, hi=pointer-to-next-free-node
	_    pad
	elem T
}

// Pool is a lock-free LIFO free-list allocator of fixed-size, type-aligned
// nodes. It hands out Node[T] handles without per-allocation heap traffic:
// all nodes are minted once, up front, and the free list threads through
// them via a version-tagged pointer (VP) that defeats ABA on the stack's
// head.
//
// Pool never grows past its initial capacity and never blocks; Allocate
// returns nil once exhausted.
type Pool[T any] struct {
	_        pad
	head     atomix.Uint128 // VP: lo=version, hi=pointer-to-top-free-node
	_        pad
	nodes    []Node[T] // backing storage, minted once, never resized
	capacity uint64
}

// NewPool creates a Pool that mints capacity nodes up front and threads
// them all onto the free list.
func NewPool[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic("lfc: pool capacity must be > 0")
	}

	p := &Pool[T]{
		nodes:    make([]Node[T], capacity),
		capacity: uint64(capacity),
	}
	for i := range p.nodes {
		p.Deallocate(&p.nodes[i])
	}
	return p
}

// Capacity returns how many nodes were initially minted.
func (p *Pool[T]) Capacity() int {
	return int(p.capacity)
}

// Allocate pops a node off the free list, or returns nil if the pool is
// exhausted. Lock-free: some thread always makes progress within a bounded
// number of CAS retries.
func (p *Pool[T]) Allocate() *Node[T] {
	for {
		version, headWord := p.head.LoadAcquire()
		if headWord == 0 {
			return nil
		}
		head := wordToPtr[Node[T]](headWord)
		_, nextWord := head.next.LoadAcquire()
		if p.head.CompareAndSwapAcqRel(version, headWord, version+1, nextWord) {
			return head
		}
	}
}

// Deallocate pushes a node back onto the free list.
func (p *Pool[T]) Deallocate(n *Node[T]) {
	nodeWord := ptrToWord(n)
	sw := spin.Wait{}
	for {
		version, headWord := p.head.LoadAcquire()
		nextVersion, _ := n.next.LoadRelaxed()
		n.next.StoreRelaxed(nextVersion+1, headWord)
		if p.head.CompareAndSwapAcqRel(version, headWord, version+1, nodeWord) {
			return
		}
		sw.Once()
	}
}

// Payload returns the address of n's embedded element storage.
func (p *Pool[T]) Payload(n *Node[T]) *T {
	return &n.elem
}

// NodeOf inverts Payload: given a pointer previously returned by Payload on
// a node owned by this Pool, it recovers the owning Node handle via offset
// arithmetic from the embedded element field.
func (p *Pool[T]) NodeOf(payload *T) *Node[T] {
	offset := unsafe.Offsetof(Node[T]{}.elem)
	return (*Node[T])(unsafe.Pointer(uintptr(unsafe.Pointer(payload)) - offset))
}

// Construct stores v into n's element storage.
func (p *Pool[T]) Construct(n *Node[T], v T) {
	n.elem = v
}

// ConstructFunc builds n's element in place via f, avoiding an intermediate
// copy — the same role as the original algorithm's placement-new callback.
func (p *Pool[T]) ConstructFunc(n *Node[T], f func(*T)) {
	f(&n.elem)
}

// Destruct clears n's element storage so the Pool no longer retains any
// reference to it (allowing referenced objects to be garbage collected)
// before the node is reused.
func (p *Pool[T]) Destruct(n *Node[T]) {
	var zero T
	n.elem = zero
}

// MoveOut copies n's element into *out (if out is non-nil) without
// clearing n's storage; callers normally follow with Destruct.
func (p *Pool[T]) MoveOut(n *Node[T], out *T) {
	if out != nil {
		*out = n.elem
	}
}

// Clear repeatedly pops every node off the free list and clears its
// element storage. Not concurrency-safe: calling Clear while any other
// operation on this Pool is in progress is undefined, exactly as the
// original algorithm documents.
func (p *Pool[T]) Clear() {
	for {
		n := p.Allocate()
		if n == nil {
			return
		}
		p.Destruct(n)
	}
}
