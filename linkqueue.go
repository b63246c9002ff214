// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Element lifecycle states for LinkQueue nodes. Unlike ArrayQueue, there is
// no EMPTY/WRITING pair here: a node only enters the queue's lifecycle
// once it has already been allocated and constructed by Push, so the
// states track what happens to it from there on.
const (
	linkConstructed int32 = iota
	linkReading
	linkDestructed
	linkRecycle
)

type linkElement[T any] struct {
	lifecycle atomix.Int32
	_         padShort
	elem      T
}

// LinkQueue is a bounded multi-producer multi-consumer singly-linked queue
// — a Michael-Scott queue generalised to many producers and many
// consumers, with nodes drawn from a Pool sized capacity+1. It always
// holds at least one node, a sentinel at the read end whose payload is
// logically empty.
//
// LinkQueue must be drained (Clear/ClearFunc) before Close; see Close.
type LinkQueue[T any] struct {
	pool        *Pool[linkElement[T]]
	_           pad
	readHead    atomix.Uint128 // VP: lo=version, hi=pointer-to-sentinel-node
	_           pad
	writeTail   atomix.Uint128 // VP: lo=version, hi=pointer-to-tail-node
	_           pad
	capacity    uint64
	multiReader bool
}

// NewLinkQueue creates a multi-reader LinkQueue of the given capacity.
// Use NewLinkQueueSingleReader when only one goroutine will ever call Pop.
func NewLinkQueue[T any](capacity int) *LinkQueue[T] {
	return newLinkQueue[T](capacity, true)
}

// NewLinkQueueSingleReader creates a LinkQueue optimised for exactly one
// consumer goroutine. Calling Pop/PopFunc from more than one goroutine on
// a single-reader LinkQueue is undefined behavior and is detected as a
// fatal invariant violation on a best-effort basis.
func NewLinkQueueSingleReader[T any](capacity int) *LinkQueue[T] {
	return newLinkQueue[T](capacity, false)
}

func newLinkQueue[T any](capacity int, multiReader bool) *LinkQueue[T] {
	if capacity <= 0 {
		panic("lfc: link queue capacity must be > 0")
	}
	if capacity+1 <= capacity {
		panic("lfc: link queue capacity overflow")
	}

	pool := NewPool[linkElement[T]](capacity + 1)
	sentinel := pool.Allocate()
	elem := pool.Payload(sentinel)
	elem.lifecycle.StoreRelaxed(linkDestructed)
	nextVersion, _ := sentinel.nextVersion()
	sentinel.setNext(nextVersion+1, 0)

	sentinelWord := ptrToWord(sentinel)
	q := &LinkQueue[T]{
		pool:        pool,
		capacity:    uint64(capacity),
		multiReader: multiReader,
	}
	q.readHead.StoreRelaxed(0, sentinelWord)
	q.writeTail.StoreRelaxed(0, sentinelWord)
	return q
}

// Cap returns the queue's fixed capacity (excluding the sentinel node).
func (q *LinkQueue[T]) Cap() int {
	return int(q.capacity)
}

// Push appends v to the queue. Returns ErrWouldBlock if the backing pool
// is exhausted (the queue already holds Cap() elements).
func (q *LinkQueue[T]) Push(v T) error {
	return q.PushFunc(func(p *T) { *p = v })
}

// PushFunc allocates a node from the pool, builds the element in place via
// construct, and links it onto the tail of the queue.
func (q *LinkQueue[T]) PushFunc(construct func(*T)) error {
	n := q.pool.Allocate()
	if n == nil {
		return ErrWouldBlock
	}

	elem := q.pool.Payload(n)
	construct(&elem.elem)
	elem.lifecycle.StoreRelaxed(linkConstructed)
	nextVersion, _ := n.nextVersion()
	n.setNext(nextVersion+1, 0)

	nodeWord := ptrToWord(n)
	sw := spin.Wait{}
	for {
		tailVersion, tailWord := q.writeTail.LoadAcquire()
		tail := wordToPtr[Node[linkElement[T]]](tailWord)
		tailNextVersion, tailNextWord := tail.nextVersion()

		if tailNextWord == 0 {
			if tail.compareAndSwapNext(tailNextVersion, tailNextWord, tailNextVersion+1, nodeWord) {
				q.writeTail.CompareAndSwapAcqRel(tailVersion, tailWord, tailVersion+1, nodeWord)
				return nil
			}
		} else {
			// Tail is stale: another producer linked but hasn't swung
			// writeTail yet. Help it along before retrying.
			q.writeTail.CompareAndSwapAcqRel(tailVersion, tailWord, tailVersion+1, tailNextWord)
		}
		sw.Once()
	}
}

// Pop removes and returns the oldest element. Returns ErrWouldBlock if the
// queue is empty.
func (q *LinkQueue[T]) Pop() (T, error) {
	var out T
	err := q.PopFunc(func(p *T) { out = *p })
	return out, err
}

// PopFunc claims the oldest element, passes it to visit before destroying
// it, then recycles the node it replaced as sentinel back to the pool.
func (q *LinkQueue[T]) PopFunc(visit func(*T)) error {
	var oldSentinelWord, newSentinelWord uint64

	sw := spin.Wait{}
	for {
		tailVersion, tailWord := q.writeTail.LoadAcquire()
		readVersion, readWord := q.readHead.LoadAcquire()
		readNode := wordToPtr[Node[linkElement[T]]](readWord)
		_, readNextWord := readNode.nextVersion()

		if readNextWord == 0 {
			return ErrWouldBlock
		}

		if readWord == tailWord {
			// writeTail lags the just-linked node; help advance it.
			q.writeTail.CompareAndSwapAcqRel(tailVersion, tailWord, tailVersion+1, readNextWord)
			sw.Once()
			continue
		}

		if q.readHead.CompareAndSwapAcqRel(readVersion, readWord, readVersion+1, readNextWord) {
			oldSentinelWord, newSentinelWord = readWord, readNextWord
			break
		}
		sw.Once()
	}

	newSentinel := wordToPtr[Node[linkElement[T]]](newSentinelWord)
	newElem := q.pool.Payload(newSentinel)
	if !newElem.lifecycle.CompareAndSwapAcqRel(linkConstructed, linkReading) {
		panicInvariant("link queue element lifecycle was not CONSTRUCTED at Pop")
	}
	if visit != nil {
		visit(&newElem.elem)
	}
	var zero T
	newElem.elem = zero
	if !newElem.lifecycle.CompareAndSwapAcqRel(linkReading, linkDestructed) {
		panicInvariant("link queue element lifecycle was not READING mid-Pop")
	}

	oldSentinel := wordToPtr[Node[linkElement[T]]](oldSentinelWord)
	oldElem := q.pool.Payload(oldSentinel)
	if q.multiReader {
		sw2 := spin.Wait{}
		for !oldElem.lifecycle.CompareAndSwapAcqRel(linkDestructed, linkRecycle) {
			sw2.Once()
		}
	} else if !oldElem.lifecycle.CompareAndSwapAcqRel(linkDestructed, linkRecycle) {
		panicInvariant("concurrent reader detected on single-reader link queue")
	}
	q.pool.Deallocate(oldSentinel)

	return nil
}

// ClearFunc discards every element currently in the queue, passing each to
// visit before destroying it.
func (q *LinkQueue[T]) ClearFunc(visit func(*T)) {
	for q.PopFunc(visit) == nil {
	}
}

// Clear discards every element currently in the queue.
func (q *LinkQueue[T]) Clear() {
	q.ClearFunc(nil)
}

// Close releases the queue's sentinel node back to its pool. The queue
// must already be empty (drained via Clear/ClearFunc); calling Close on a
// non-empty queue is a fatal precondition violation, mirroring the
// original algorithm's destructor assertion.
func (q *LinkQueue[T]) Close() {
	_, readWord := q.readHead.LoadRelaxed()
	_, tailWord := q.writeTail.LoadRelaxed()
	if readWord != tailWord {
		panicInvariant("LinkQueue.Close called before the queue was drained (call Clear/ClearFunc first)")
	}
	q.pool.Deallocate(wordToPtr[Node[linkElement[T]]](readWord))
}

// nextVersion and setNext/compareAndSwapNext give LinkQueue access to a
// Node's free-list-link word for use as the queue's forward link, since
// LinkQueue reuses Pool's Node.next field as its intrusive singly-linked
// list pointer while an element is live (Pool only needs that field while
// the node is on the free list, i.e. never while LinkQueue holds it).
func (n *Node[T]) nextVersion() (version, word uint64) {
	return n.next.LoadAcquire()
}

func (n *Node[T]) setNext(version, word uint64) {
	n.next.StoreRelaxed(version, word)
}

func (n *Node[T]) compareAndSwapNext(oldVersion, oldWord, newVersion, newWord uint64) bool {
	return n.next.CompareAndSwapAcqRel(oldVersion, oldWord, newVersion, newWord)
}
