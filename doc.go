// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfc provides lock-free concurrent containers for
// producer/consumer pipelines in a shared-memory, multi-threaded process.
//
// Three cooperating primitives are provided:
//
//   - Pool[T]: a lock-free LIFO free-list allocator of fixed-size,
//     type-aligned nodes.
//   - ArrayQueue[T]: a bounded multi-producer multi-consumer queue backed
//     by a slot array of a capacity fixed at construction.
//   - LinkQueue[T]: a bounded multi-producer multi-consumer singly-linked
//     queue, a Michael-Scott variant whose nodes are drawn from a Pool.
//
// # Quick Start
//
//	q := lfc.NewArrayQueue[int](1024)
//	lq := lfc.NewLinkQueue[Event](4096)
//	p := lfc.NewPool[Buffer](256)
//
// # Basic Usage
//
// ArrayQueue and LinkQueue share the same push/pop shape:
//
//	// Push (non-blocking)
//	if err := q.Push(42); err != nil {
//	    // ErrWouldBlock: queue is full
//	}
//
//	// Pop (non-blocking)
//	v, err := q.Pop()
//	if err != nil {
//	    // ErrWouldBlock: queue is empty
//	}
//
// PushFunc/PopFunc let callers build or visit the element in place,
// without an intermediate copy:
//
//	err := lq.PushFunc(func(e *Event) {
//	    e.Kind = KindTick
//	    e.Timestamp = time.Now()
//	})
//
//	err = lq.PopFunc(func(e *Event) {
//	    process(e)
//	})
//
// # Common Patterns
//
// Pipeline stage (many producers feeding one array-backed stage):
//
//	q := lfc.NewArrayQueue[Data](1024)
//
//	go func() { // Producer
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for q.Push(data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // Consumer
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := q.Pop()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Free-list node reuse (Pool as the node supplier behind LinkQueue, or
// used standalone for any fixed-size slot reuse):
//
//	pool := lfc.NewPool[Buffer](1024)
//	n := pool.Allocate()
//	if n == nil {
//	    // pool exhausted
//	}
//	pool.Construct(n, Buffer{})
//	buf := pool.Payload(n)
//	// ... use buf ...
//	pool.Destruct(n)
//	pool.Deallocate(n)
//
// # Error Handling
//
// Push/Pop return [ErrWouldBlock] when the operation cannot proceed
// (container full or empty, or — for LinkQueue's Push — its backing pool
// exhausted). This is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency with the rest of this vendor's libraries.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Push(item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lfc.IsWouldBlock(err) {
//	        return err // unexpected
//	    }
//	    backoff.Wait()
//	}
//
// Violations of a protocol invariant a correct caller can never trigger —
// a lifecycle CAS the proof guarantees must succeed failing, or calling
// LinkQueue.Close before draining the queue — panic with a diagnostic
// naming the call site's file and line. These indicate a bug in this
// package or undefined-behavior misuse (e.g. concurrent Pool.Clear, or a
// second reader on a single-reader LinkQueue), not a condition to recover
// from.
//
// # Capacity
//
// ArrayQueue and Pool take their capacity as-is; LinkQueue's backing pool
// is sized capacity+1 to always hold a sentinel node in addition to the
// live elements. None of the three round capacity up to a power of 2 —
// array indices are taken modulo capacity.
//
// # Thread Safety
//
// All three containers are safe for any number of concurrent producers
// and consumers (multi-producer multi-consumer), except
// NewLinkQueueSingleReader, which assumes exactly one goroutine calls
// Pop/PopFunc; violating that assumption is undefined behavior, detected
// as a fatal invariant violation on a best-effort basis.
//
// # Ordering Guarantees
//
// Per producer, pushes linearise in program order. Globally, pushes
// linearise at their index/tail CAS and pops at their index/head CAS;
// there is no guarantee of strict FIFO across distinct producers, only
// per-producer program order — matching the progress guarantees a
// lock-free (not wait-free) design can make.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm verification:
// it tracks explicit synchronization primitives (mutex, channels,
// WaitGroup) but cannot observe happens-before relationships established
// purely through atomic acquire-release orderings on separate variables.
// These containers use version-tagged pointers and lifecycle atomics with
// acquire-release semantics to protect non-atomic payload fields; the
// algorithms are correct, but the race detector may report false
// positives. Tests that rely on this cross-variable ordering are excluded
// under -race via [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering (including 128-bit version-tagged pointers), and
// [code.hybscloud.com/spin] for bounded backoff during the lifecycle
// handshake spins.
package lfc
