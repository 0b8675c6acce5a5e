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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenInvalidMode(t *testing.T) {
	_, err := Open(3, Mode(99))
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestOpenInvalidDims(t *testing.T) {
	_, err := Open(0, L2)
	require.ErrorIs(t, err, ErrInvalidDims)

	_, err = Open(-1, L2)
	require.ErrorIs(t, err, ErrInvalidDims)
}

func TestOpenAllocatesFirstBucket(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)
	require.Equal(t, 0, tbl.curBucket)
	require.NotNil(t, tbl.buckets[0])
	require.Equal(t, 4, tbl.dimsAligned)
}

func TestInsertDimensionMismatch(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)

	_, err = tbl.Insert([]float32{1, 2})
	require.ErrorIs(t, err, ErrInvalidDims)
}

// E1: L2 exact match and tie-break.
func TestE1L2ExactMatch(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)

	i0, err := tbl.Insert([]float32{1, 0, 0})
	require.NoError(t, err)
	i1, err := tbl.Insert([]float32{0, 1, 0})
	require.NoError(t, err)
	i2, err := tbl.Insert([]float32{0, 0, 1})
	require.NoError(t, err)

	id, score, err := tbl.Search([]float32{0, 0, 1})
	require.NoError(t, err)
	require.Equal(t, i2, id)
	require.InDelta(t, 0.0, score, 1e-6)

	results, err := tbl.SearchN([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Equal(t, i0, results[0].ID)
	require.InDelta(t, 0.0, results[0].Score, 1e-6)
	// tie between i1 and i2 at distance 2.0; earlier insert (i1) wins.
	require.Equal(t, i1, results[1].ID)
	require.InDelta(t, 2.0, results[1].Score, 1e-6)
}

// E2: cosine mode.
func TestE2Cosine(t *testing.T) {
	tbl, err := Open(2, Cosine)
	require.NoError(t, err)

	i0, err := tbl.Insert([]float32{1, 0})
	require.NoError(t, err)
	i1, err := tbl.Insert([]float32{0, 1})
	require.NoError(t, err)
	i2, err := tbl.Insert([]float32{1, 1})
	require.NoError(t, err)

	id, score, err := tbl.Search([]float32{2, 2})
	require.NoError(t, err)
	require.Equal(t, i2, id)
	require.InDelta(t, 1.0, score, 1e-4)

	results, err := tbl.SearchN([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Equal(t, i0, results[0].ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-4)
	require.Equal(t, i2, results[1].ID)
	require.InDelta(t, 0.7071, results[1].Score, 1e-3)
	require.Equal(t, i1, results[2].ID)
	require.InDelta(t, 0.0, results[2].Score, 1e-4)
}

// E3: delete shifts the tie-break.
func TestE3Delete(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)

	i0, _ := tbl.Insert([]float32{1, 0, 0})
	i1, _ := tbl.Insert([]float32{0, 1, 0})
	i2, _ := tbl.Insert([]float32{0, 0, 1})

	tbl.Delete(i2)

	id, score, err := tbl.Search([]float32{0, 0, 1})
	require.NoError(t, err)
	require.Equal(t, i0, id)
	require.InDelta(t, 2.0, score, 1e-6)

	// i2 must never reappear even under search_n.
	results, err := tbl.SearchN([]float32{0, 0, 1}, 3)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, i2, r.ID)
	}
	require.Equal(t, i1, results[1].ID)
}

func TestDeleteIdempotent(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)

	id, err := tbl.Insert([]float32{1, 2, 3})
	require.NoError(t, err)

	tbl.Delete(id)
	tbl.Delete(id) // must not panic

	got, _, err := tbl.Search([]float32{1, 2, 3})
	require.NoError(t, err)
	require.NotEqual(t, id, got)
}

func TestDeleteUnknownIDIsNoop(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)

	tbl.Delete(encodeID(5, 5)) // no such bucket allocated
	tbl.Delete(999999)
	tbl.Delete(-1)
	// No panic is the assertion.
}

// E4: bucket rollover.
func TestE4BucketRollover(t *testing.T) {
	tbl, err := Open(4, L2)
	require.NoError(t, err)

	n := tbl.capPerBucket
	require.Equal(t, slabBytes/16, n)

	var lastID int32
	for i := 0; i < n+1; i++ {
		id, err := tbl.Insert([]float32{float32(i), 0, 0, 0})
		require.NoError(t, err)
		lastID = id
		if i < n {
			b, _ := decodeID(id)
			require.Equal(t, 0, b)
		}
	}
	b, _ := decodeID(lastID)
	require.Equal(t, 1, b)
	require.Equal(t, 2, tbl.BucketsAllocated())
}

func TestBucketsAllocatedStartsAtOne(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.BucketsAllocated())
}

func TestCapacityExhaustion(t *testing.T) {
	// Use a synthetic, tiny per-bucket capacity by choosing a dimension
	// close to the slab size, so the full MaxBuckets*N sweep is cheap.
	dims := slabBytes/4 - 3 // dimsAligned == slabBytes/4, so cap == 1 per bucket
	tbl, err := Open(dims, L2)
	require.NoError(t, err)

	v := make([]float32, dims)
	for i := 0; i < MaxBuckets; i++ {
		_, err := tbl.Insert(v)
		require.NoErrorf(t, err, "insert %d should succeed", i)
	}

	_, err = tbl.Insert(v)
	require.ErrorIs(t, err, ErrCapacity)

	// The table remains queryable after hitting capacity.
	_, _, err = tbl.Search(v)
	require.NoError(t, err)
}

func TestSearchInvalidDims(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)
	_, _, err = tbl.Search([]float32{1, 2})
	require.ErrorIs(t, err, ErrInvalidDims)
}

func TestSearchNInvalidN(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)
	_, err = tbl.Insert([]float32{1, 2, 3})
	require.NoError(t, err)
	_, err = tbl.SearchN([]float32{1, 2, 3}, 0)
	require.ErrorIs(t, err, ErrInvalidN)
}

func TestSearchEmptyTable(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)

	id, score, err := tbl.Search([]float32{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, NoMatch, id)
	require.True(t, score > 0) // +Inf

	results, err := tbl.SearchN([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	for _, r := range results {
		require.Equal(t, NoMatch, r.ID)
	}
}

// Property 10: padding invariance for D=3, D'=4.
func TestPaddingInvariance(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)
	id, err := tbl.Insert([]float32{1, 2, 3})
	require.NoError(t, err)

	gotID, score, err := tbl.Search([]float32{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, id, gotID)
	require.InDelta(t, 0.0, score, 1e-6)

	cosTbl, err := Open(3, Cosine)
	require.NoError(t, err)
	cid, err := cosTbl.Insert([]float32{1, 2, 3})
	require.NoError(t, err)
	gotCID, cscore, err := cosTbl.Search([]float32{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, cid, gotCID)
	require.InDelta(t, 1.0, cscore, 1e-5)
}

// Property 7: monotone filling.
func TestMonotoneFilling(t *testing.T) {
	tbl, err := Open(4, L2)
	require.NoError(t, err)
	n := tbl.capPerBucket

	for k := 1; k <= n*2+5; k++ {
		_, err := tbl.Insert([]float32{float32(k), 0, 0, 0})
		require.NoError(t, err)

		wantCur := (k - 1) / n
		require.Equal(t, wantCur, tbl.curBucket)
		for b := 0; b < tbl.curBucket; b++ {
			require.Equal(t, n, tbl.buckets[b].highWater)
		}
	}
}

// Property 1: ID uniqueness.
func TestIDUniqueness(t *testing.T) {
	tbl, err := Open(8, L2)
	require.NoError(t, err)

	seen := make(map[int32]bool)
	for i := 0; i < 5000; i++ {
		v := make([]float32, 8)
		v[i%8] = float32(i)
		id, err := tbl.Insert(v)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %d at iteration %d", id, i)
		seen[id] = true
	}
}
