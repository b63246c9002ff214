// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfc"
)

// TestArrayQueuePerProducerOrdering runs scenario C2: each producer writes a
// strictly increasing per-producer sequence number; no single consumer may
// observe a producer's sequence numbers out of order, even though
// interleaving across producers (and across consumers) is unconstrained.
func TestArrayQueuePerProducerOrdering(t *testing.T) {
	if lfc.RaceEnabled {
		t.Skip("skip: ordering test relies on cross-variable atomic ordering")
	}

	const numP = 6
	const itemsPerProd = 4000
	const timeout = 10 * time.Second

	q := lfc.NewArrayQueue[int](128)
	var consumed atomix.Int64
	var timedOut atomix.Bool

	var wg sync.WaitGroup
	wg.Add(numP + 2)

	for p := 0; p < numP; p++ {
		go func(id int) {
			defer wg.Done()
			deadline := time.Now().Add(timeout)
			backoff := iox.Backoff{}
			for i := 0; i < itemsPerProd; i++ {
				v := id*100000 + i
				for q.Push(v) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	expectedTotal := int64(numP * itemsPerProd)
	for c := 0; c < 2; c++ {
		go func() {
			defer wg.Done()
			// Each consumer checks order against its own view only.
			lastSeen := make([]int, numP)
			for i := range lastSeen {
				lastSeen[i] = -1
			}
			deadline := time.Now().Add(timeout)
			backoff := iox.Backoff{}
			for consumed.Load() < expectedTotal {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := q.Pop()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				producerID := v / 100000
				seq := v % 100000

				if seq <= lastSeen[producerID] {
					t.Errorf("producer %d: observed sequence %d after %d", producerID, seq, lastSeen[producerID])
					continue
				}
				lastSeen[producerID] = seq

				consumed.Add(1)
			}
		}()
	}

	wg.Wait()
	if timedOut.Load() {
		t.Fatal("producers/consumers timed out before completing")
	}
	if consumed.Load() != expectedTotal {
		t.Fatalf("consumed %d items, want %d", consumed.Load(), expectedTotal)
	}
}

// pooledHandle is a value type stored in the ArrayQueue in scenario C3: a
// handle into a pool-allocated node, round-tripped through the queue so
// consumers can recover the underlying Pool node.
type pooledHandle struct {
	node *lfc.Node[int]
}

// TestArrayQueueOfPoolHandles runs scenario C3: a Pool pre-filled with
// nodes, whose handles are pushed through an ArrayQueue and recycled back to
// the Pool by consumers, all under concurrent load.
func TestArrayQueueOfPoolHandles(t *testing.T) {
	if lfc.RaceEnabled {
		t.Skip("skip: stress test relies on cross-variable atomic ordering")
	}

	const poolCapacity = 32
	const numWriters = 4
	const numRecyclers = 4
	const rounds = 20000
	const timeout = 10 * time.Second

	pool := lfc.NewPool[int](poolCapacity)
	q := lfc.NewArrayQueue[pooledHandle](poolCapacity)

	var produced, recycled atomix.Int64
	var timedOut atomix.Bool

	var wg sync.WaitGroup
	wg.Add(numWriters + numRecyclers)

	for w := 0; w < numWriters; w++ {
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(timeout)
			backoff := iox.Backoff{}
			done := 0
			for done < rounds {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				n := pool.Allocate()
				if n == nil {
					backoff.Wait()
					continue
				}
				pool.Construct(n, int(produced.Load()))
				if err := q.Push(pooledHandle{node: n}); err != nil {
					pool.Destruct(n)
					pool.Deallocate(n)
					backoff.Wait()
					continue
				}
				backoff.Reset()
				produced.Add(1)
				done++
			}
		}()
	}

	for r := 0; r < numRecyclers; r++ {
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(timeout)
			backoff := iox.Backoff{}
			for {
				if recycled.Load() >= int64(numWriters*rounds) {
					return
				}
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				h, err := q.Pop()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				pool.Destruct(h.node)
				pool.Deallocate(h.node)
				recycled.Add(1)
			}
		}()
	}

	wg.Wait()
	if timedOut.Load() {
		t.Fatal("writers/recyclers timed out before completing")
	}
	if recycled.Load() != produced.Load() {
		t.Fatalf("recycled %d handles, produced %d", recycled.Load(), produced.Load())
	}

	// The pool must be exactly as full as it started once every handle has
	// been recycled.
	seen := 0
	for pool.Allocate() != nil {
		seen++
	}
	if seen != poolCapacity {
		t.Fatalf("final drain: got %d nodes, want %d", seen, poolCapacity)
	}
}
