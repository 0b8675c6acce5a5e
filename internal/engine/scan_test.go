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
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// Property 5: top-N ordering, checked against a naive exhaustive sort over
// a randomly populated table.
func TestSearchNOrderingMatchesNaiveSort(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	tbl, err := Open(6, L2)
	require.NoError(t, err)

	const live = 37
	ids := make([]int32, 0, live)
	vectors := make([][]float32, 0, live)
	for i := 0; i < live; i++ {
		v := randomVector(rnd, 6)
		id, err := tbl.Insert(v)
		require.NoError(t, err)
		ids = append(ids, id)
		vectors = append(vectors, v)
	}

	query := randomVector(rnd, 6)
	const n = 10
	results, err := tbl.SearchN(query, n)
	require.NoError(t, err)

	// Ordering contract: never worse than the previous entry.
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		if cur.ID == NoMatch {
			continue
		}
		require.False(t, cur.Score < prev.Score, "result %d scored better than result %d", i, i-1)
	}

	type scored struct {
		id    int32
		score float32
	}
	naive := make([]scored, len(ids))
	for i, id := range ids {
		naive[i] = scored{id: id, score: l2Squared(padTo(vectors[i], 8), padTo(query, 8))}
	}
	sort.Slice(naive, func(i, j int) bool { return naive[i].score < naive[j].score })

	for i := 0; i < n; i++ {
		require.Equal(t, naive[i].id, results[i].ID, "position %d", i)
		require.InDelta(t, naive[i].score, results[i].Score, 1e-4, "position %d", i)
	}
}

func TestSearchNPaddingWhenFewerThanN(t *testing.T) {
	tbl, err := Open(3, L2)
	require.NoError(t, err)

	_, err = tbl.Insert([]float32{1, 2, 3})
	require.NoError(t, err)
	_, err = tbl.Insert([]float32{4, 5, 6})
	require.NoError(t, err)

	results, err := tbl.SearchN([]float32{0, 0, 0}, 5)
	require.NoError(t, err)

	require.NotEqual(t, NoMatch, results[0].ID)
	require.NotEqual(t, NoMatch, results[1].ID)
	for _, r := range results[2:] {
		require.Equal(t, NoMatch, r.ID)
		kernel, _ := kernelFor(L2)
		require.Equal(t, kernel.worstValue, r.Score)
	}
}

func TestInsertCandidateStrictTieBreak(t *testing.T) {
	k, err := kernelFor(L2)
	require.NoError(t, err)

	r := []MatchResult{
		{ID: NoMatch, Score: k.worstValue},
		{ID: NoMatch, Score: k.worstValue},
	}
	insertCandidate(r, k, 100, 5.0)
	insertCandidate(r, k, 200, 5.0) // equal score: must not displace 100
	require.Equal(t, int32(100), r[0].ID)
	require.Equal(t, int32(200), r[1].ID)

	insertCandidate(r, k, 300, 1.0) // strictly better: displaces
	require.Equal(t, int32(300), r[0].ID)
	require.Equal(t, int32(100), r[1].ID)
}

func randomVector(rnd *rand.Rand, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rnd.Float32()*2 - 1
	}
	return v
}

func padTo(v []float32, n int) []float32 {
	out := make([]float32, n)
	copy(out, v)
	return out
}
