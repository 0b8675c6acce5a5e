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

func TestNewBucketCapacity(t *testing.T) {
	b, err := newBucket(4)
	require.NoError(t, err)
	require.Equal(t, slabBytes/16, b.cap)
	require.Len(t, b.slab, b.cap*4)
	require.Len(t, b.live, b.cap)
}

func TestNewBucketTooWideFails(t *testing.T) {
	// A dimsAligned so large a single slot would exceed the slab.
	_, err := newBucket(slabBytes)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestBucketAppendAndAt(t *testing.T) {
	b, err := newBucket(4)
	require.NoError(t, err)

	v := []float32{1, 2, 3, 0}
	slot := b.append(v)
	require.Equal(t, 0, slot)
	require.Equal(t, 1, b.highWater)

	got := b.at(slot, 4)
	require.Equal(t, v, got)
}

func TestBucketPaddingIsZero(t *testing.T) {
	b, err := newBucket(4)
	require.NoError(t, err)

	// D=3 caller already zero-padded the 4th element before calling append.
	v := []float32{1, 2, 3, 0}
	slot := b.append(v)
	got := b.at(slot, 4)
	require.Equal(t, float32(0), got[3])
}

func TestBucketFull(t *testing.T) {
	b, err := newBucket(slabBytes / 4) // cap == 1
	require.NoError(t, err)
	require.False(t, b.full())

	b.append(make([]float32, slabBytes/4))
	require.True(t, b.full())
}

func TestBucketMarkDeleted(t *testing.T) {
	b, err := newBucket(4)
	require.NoError(t, err)

	slot := b.append([]float32{1, 2, 3, 4})
	require.NotNil(t, b.at(slot, 4))

	b.markDeleted(slot, 4)
	require.Nil(t, b.at(slot, 4))

	// Idempotent: deleting again is a no-op, not a panic.
	b.markDeleted(slot, 4)
	require.Nil(t, b.at(slot, 4))
}

func TestBucketMarkDeletedZerosMemory(t *testing.T) {
	b, err := newBucket(4)
	require.NoError(t, err)

	slot := b.append([]float32{1, 2, 3, 4})
	b.markDeleted(slot, 4)

	start := slot * 4
	for _, f := range b.slab[start : start+4] {
		require.Equal(t, float32(0), f)
	}
}

func TestBucketAtOutOfRange(t *testing.T) {
	b, err := newBucket(4)
	require.NoError(t, err)
	require.Nil(t, b.at(-1, 4))
	require.Nil(t, b.at(b.cap, 4))
}
