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

import "errors"

var (
	// ErrInvalidMode is returned by Open for an unrecognized similarity mode.
	ErrInvalidMode = errors.New("engine: invalid similarity mode")

	// ErrInvalidDims is returned when a table's dimension is non-positive,
	// or when an inserted or queried vector's length does not match it.
	ErrInvalidDims = errors.New("engine: invalid vector dimensions")

	// ErrInvalidN is returned by SearchN for a non-positive n.
	ErrInvalidN = errors.New("engine: invalid result count")

	// ErrCapacity is returned by Insert once every bucket slot is full.
	ErrCapacity = errors.New("engine: table at capacity")

	// ErrOutOfMemory is returned when a bucket's aligned dimension does not
	// fit within a single slab, so not even one slot could be allocated.
	ErrOutOfMemory = errors.New("engine: out of memory")
)
