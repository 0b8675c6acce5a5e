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

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		bucket, slot int
	}{
		{0, 0},
		{1, 1},
		{127, 0},
		{0, 1<<24 - 1},
		{64, 12345},
		{127, 1<<24 - 1},
	}

	for _, c := range cases {
		id := encodeID(c.bucket, c.slot)
		gotBucket, gotSlot := decodeID(id)
		require.Equal(t, c.bucket, gotBucket, "bucket round trip for %+v", c)
		require.Equal(t, c.slot, gotSlot, "slot round trip for %+v", c)
	}
}

func TestEncodeDecodeExhaustiveSmallSlots(t *testing.T) {
	for b := 0; b < 128; b++ {
		for s := 0; s < 1000; s++ {
			id := encodeID(b, s)
			gotB, gotS := decodeID(id)
			require.Equal(t, b, gotB)
			require.Equal(t, s, gotS)
		}
	}
}

func TestNoMatchSentinel(t *testing.T) {
	require.Equal(t, int32(-1), NoMatch)
}
