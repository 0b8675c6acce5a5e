// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

// slabBytes is the fixed size of every bucket's backing storage: 1 MiB.
const slabBytes = 1 << 20

// bucket owns one contiguous slab of aligned vector slots plus a liveness
// table. Slots are never reused once deleted: a dead slot stays dead for
// the lifetime of the bucket, preserving stable IDs across deletions.
type bucket struct {
	slab      []float32 // len == cap*dimsAligned, zero-initialized
	live      []bool    // len == cap; live[i] tells whether slot i holds data
	highWater int       // slots ever assigned; monotonically non-decreasing
	cap       int       // number of slots this bucket can hold
}

// newBucket allocates a zero-initialized slab sized for dimsAligned-wide
// slots. It fails with ErrOutOfMemory if a single slot would not even fit
// within the fixed slab size.
func newBucket(dimsAligned int) (*bucket, error) {
	cap := slabBytes / (dimsAligned * 4)
	if cap <= 0 {
		return nil, ErrOutOfMemory
	}
	return &bucket{
		slab: make([]float32, cap*dimsAligned),
		live: make([]bool, cap),
		cap:  cap,
	}, nil
}

// full reports whether every slot in the bucket has been assigned.
func (b *bucket) full() bool {
	return b.highWater >= b.cap
}

// append copies a dimsAligned-wide vector (already zero-padded by the
// caller) into the next free slot and advances the high-water mark. The
// caller must have already checked !b.full().
func (b *bucket) append(vAligned []float32) int {
	slot := b.highWater
	start := slot * len(vAligned)
	copy(b.slab[start:start+len(vAligned)], vAligned)
	b.live[slot] = true
	b.highWater++
	return slot
}

// at returns the dimsAligned-wide view of slot i, or nil if the slot is
// dead or out of range. The returned slice shares the bucket's backing
// array; callers must not retain it past the table's lock scope.
func (b *bucket) at(i, dimsAligned int) []float32 {
	if i < 0 || i >= b.cap || !b.live[i] {
		return nil
	}
	start := i * dimsAligned
	return b.slab[start : start+dimsAligned]
}

// markDeleted zeros slot i's region and marks it dead. A no-op if the slot
// is already dead or out of range.
func (b *bucket) markDeleted(i, dimsAligned int) {
	if i < 0 || i >= b.cap || !b.live[i] {
		return
	}
	start := i * dimsAligned
	clear(b.slab[start : start+dimsAligned])
	b.live[i] = false
}
