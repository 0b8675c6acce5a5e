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

// Package engine implements the in-memory vector cache's index core: a
// bucketed arena of SIMD-aligned vector slabs, an encoded (bucket, slot) ID
// scheme, L2 and cosine similarity kernels, and the top-1/top-N brute-force
// scans over it. A single reader-writer lock per Table serializes writers
// against each other and against readers; readers run concurrently with
// each other.
package engine

import "sync"

// MaxBuckets bounds the number of buckets a Table will ever allocate. It is
// fixed at 128 because encoded IDs store the bucket index as a signed byte.
const MaxBuckets = 128

// MatchResult pairs an encoded vector ID with its similarity score. A
// MatchResult with ID == NoMatch represents "no candidate" and carries the
// mode's worst-value sentinel as its Score.
type MatchResult struct {
	ID    int32
	Score float32
}

// Table is the bounded, fixed-dimension vector index core. All buckets
// share one slab size, one similarity mode, and one lock.
type Table struct {
	mu sync.RWMutex

	dims        int
	dimsAligned int
	capPerBucket int
	mode        Mode
	kernel      kernel

	buckets   [MaxBuckets]*bucket
	curBucket int
	closed    bool
}

// alignDims rounds d up to the next multiple of 4.
func alignDims(d int) int {
	return (d + 3) &^ 3
}

// Open creates a Table for dims-dimensional vectors scored under mode. It
// allocates the first bucket eagerly.
func Open(dims int, mode Mode) (*Table, error) {
	if dims <= 0 {
		return nil, ErrInvalidDims
	}
	k, err := kernelFor(mode)
	if err != nil {
		return nil, err
	}
	dimsAligned := alignDims(dims)
	b0, err := newBucket(dimsAligned)
	if err != nil {
		return nil, err
	}

	t := &Table{
		dims:         dims,
		dimsAligned:  dimsAligned,
		capPerBucket: b0.cap,
		mode:         mode,
		kernel:       k,
	}
	t.buckets[0] = b0
	return t, nil
}

// Dims returns the table's configured (unpadded) vector dimension.
func (t *Table) Dims() int { return t.dims }

// Mode returns the table's similarity mode.
func (t *Table) Mode() Mode { return t.mode }

// BucketsAllocated returns the number of buckets currently allocated in the
// table's arena (always at least 1, since Open allocates the first bucket
// eagerly).
func (t *Table) BucketsAllocated() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.curBucket + 1
}

// padded copies v into a fresh dimsAligned-length slice, zero-filling the
// [dims, dimsAligned) tail. v must already be exactly t.dims long; callers
// check that before calling padded.
func (t *Table) padded(v []float32) []float32 {
	out := make([]float32, t.dimsAligned)
	copy(out, v)
	return out
}

// Insert appends v to the table and returns its encoded ID. It acquires the
// write lock for the duration of the call; no partial insert is observable
// on any failure path.
func (t *Table) Insert(v []float32) (int32, error) {
	if len(v) != t.dims {
		return NoMatch, ErrInvalidDims
	}
	vAligned := t.padded(v)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return NoMatch, ErrCapacity
	}

	cur := t.buckets[t.curBucket]
	if cur.full() {
		if t.curBucket+1 >= MaxBuckets {
			return NoMatch, ErrCapacity
		}
		next, err := newBucket(t.dimsAligned)
		if err != nil {
			return NoMatch, err
		}
		t.curBucket++
		t.buckets[t.curBucket] = next
		cur = next
	}

	slot := cur.append(vAligned)
	return encodeID(t.curBucket, slot), nil
}

// Delete marks id's slot dead. Unknown, out-of-range, or already-deleted
// IDs are a silent no-op, matching the original contract.
func (t *Table) Delete(id int32) {
	b, s := decodeID(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	if b < 0 || b >= MaxBuckets || b > t.curBucket {
		return
	}
	bk := t.buckets[b]
	if bk == nil {
		return
	}
	bk.markDeleted(s, t.dimsAligned)
}

// Search returns the single best-scoring live vector for q, or
// (NoMatch, worstValue) if the table has no live vectors.
func (t *Table) Search(q []float32) (int32, float32, error) {
	if len(q) != t.dims {
		return NoMatch, 0, ErrInvalidDims
	}
	qAligned := t.padded(q)

	t.mu.RLock()
	defer t.mu.RUnlock()

	id, score := scanTop1(t, qAligned)
	return id, score, nil
}

// SearchN returns the n best-scoring live vectors for q, best-first,
// padded with (NoMatch, worstValue) if fewer than n live vectors exist.
func (t *Table) SearchN(q []float32, n int) ([]MatchResult, error) {
	if len(q) != t.dims {
		return nil, ErrInvalidDims
	}
	if n <= 0 {
		return nil, ErrInvalidN
	}
	qAligned := t.padded(q)

	t.mu.RLock()
	defer t.mu.RUnlock()

	return scanTopN(t, qAligned, n), nil
}

// Close drops every bucket. The table must not be used afterward; Go's
// garbage collector reclaims the slabs once nothing references them.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.buckets {
		t.buckets[i] = nil
	}
	t.closed = true
}
