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

// scanTop1 and scanTopN assume the caller already holds t's read lock for
// the whole traversal; they take no lock themselves.

// scanTop1 walks every live slot in bucket-then-slot order and returns the
// single best match under t's kernel.
func scanTop1(t *Table, qAligned []float32) (int32, float32) {
	best := NoMatch
	bestScore := t.kernel.worstValue

	for bi := 0; bi <= t.curBucket; bi++ {
		bk := t.buckets[bi]
		for si := 0; si < bk.highWater; si++ {
			v := bk.at(si, t.dimsAligned)
			if v == nil {
				continue
			}
			score := t.kernel.compare(v, qAligned)
			if t.kernel.isBetter(score, bestScore) {
				best = encodeID(bi, si)
				bestScore = score
			}
		}
	}
	return best, bestScore
}

// scanTopN walks every live slot in bucket-then-slot order, maintaining an
// n-wide sorted-insertion buffer. Ties never displace an incumbent (the
// kernel's isBetter is strict), so the earlier-inserted candidate always
// keeps its position — this is the spec's observable tie-break.
func scanTopN(t *Table, qAligned []float32, n int) []MatchResult {
	r := make([]MatchResult, n)
	for i := range r {
		r[i] = MatchResult{ID: NoMatch, Score: t.kernel.worstValue}
	}

	for bi := 0; bi <= t.curBucket; bi++ {
		bk := t.buckets[bi]
		for si := 0; si < bk.highWater; si++ {
			v := bk.at(si, t.dimsAligned)
			if v == nil {
				continue
			}
			score := t.kernel.compare(v, qAligned)
			insertCandidate(r, t.kernel, encodeID(bi, si), score)
		}
	}
	return r
}

// insertCandidate finds the smallest k where (id, score) beats r[k] and
// shifts the tail right by one to make room, discarding the current worst
// entry. A no-op if (id, score) beats nothing in r.
func insertCandidate(r []MatchResult, k kernel, id int32, score float32) {
	pos := -1
	for i := range r {
		if k.isBetter(score, r[i].Score) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	copy(r[pos+1:], r[pos:len(r)-1])
	r[pos] = MatchResult{ID: id, Score: score}
}
