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

package metrics

import (
	"encoding/json"
	"runtime"
	"sync/atomic"
	"time"
)

// Stats holds all system metrics using atomic operations for thread-safety.
// This design avoids mutex overhead and provides lock-free performance monitoring.
type Stats struct {
	// Core counters
	totalCommands     atomic.Uint64 // Total number of commands processed
	activeConnections atomic.Int64  // Current number of active connections
	vectorsLive       atomic.Int64  // Current number of live (non-deleted) vectors
	bucketsAllocated  atomic.Int64  // Number of arena buckets allocated across all tables
	totalInserts      atomic.Uint64 // Total number of VSET/Insert calls
	totalDeletes      atomic.Uint64 // Total number of VDEL/Delete calls
	totalSearches     atomic.Uint64 // Total number of VSEARCH/Search calls
	memoryUsage       atomic.Uint64 // Approximate process memory usage in bytes

	// Timing
	startTime time.Time // Server start time for uptime calculation
}

// Global stats instance
var global = &Stats{
	startTime: time.Now(),
}

// Global returns the global stats instance.
func Global() *Stats {
	return global
}

// IncrementCommands increments the total command counter.
func (s *Stats) IncrementCommands() {
	s.totalCommands.Add(1)
}

// IncrementActiveConnections increments the active connection counter.
func (s *Stats) IncrementActiveConnections() {
	s.activeConnections.Add(1)
}

// DecrementActiveConnections decrements the active connection counter.
func (s *Stats) DecrementActiveConnections() {
	s.activeConnections.Add(-1)
}

// RecordInsert counts a successful vector insert and adjusts the live count.
func (s *Stats) RecordInsert() {
	s.totalInserts.Add(1)
	s.vectorsLive.Add(1)
}

// RecordDelete counts a successful vector delete and adjusts the live count.
func (s *Stats) RecordDelete() {
	s.totalDeletes.Add(1)
	s.vectorsLive.Add(-1)
}

// RecordSearch counts a Search or SearchN call.
func (s *Stats) RecordSearch() {
	s.totalSearches.Add(1)
}

// SetBucketsAllocated records the current number of allocated arena buckets
// across every open table.
func (s *Stats) SetBucketsAllocated(n int64) {
	s.bucketsAllocated.Store(n)
}

// SetMemoryUsage sets the approximate process memory usage in bytes.
func (s *Stats) SetMemoryUsage(bytes uint64) {
	s.memoryUsage.Store(bytes)
}

// GetMemoryUsage returns the approximate process memory usage in bytes.
func (s *Stats) GetMemoryUsage() uint64 {
	return s.memoryUsage.Load()
}

// Reset zeroes every counter except active connections, memory usage and
// start time, which reflect live process state rather than accumulated history. Used
// by CLEAR to reset engine-derived counters without tearing down the
// server's connection bookkeeping or uptime.
func (s *Stats) Reset() {
	s.totalCommands.Store(0)
	s.vectorsLive.Store(0)
	s.bucketsAllocated.Store(0)
	s.totalInserts.Store(0)
	s.totalDeletes.Store(0)
	s.totalSearches.Store(0)
}

// GetTotalCommands returns the total number of commands processed.
func (s *Stats) GetTotalCommands() uint64 {
	return s.totalCommands.Load()
}

// GetActiveConnections returns the current number of active connections.
func (s *Stats) GetActiveConnections() int64 {
	return s.activeConnections.Load()
}

// GetVectorsLive returns the current number of live vectors.
func (s *Stats) GetVectorsLive() int64 {
	return s.vectorsLive.Load()
}

// GetBucketsAllocated returns the current number of allocated arena buckets.
func (s *Stats) GetBucketsAllocated() int64 {
	return s.bucketsAllocated.Load()
}

// GetUptime returns the server uptime duration.
func (s *Stats) GetUptime() time.Duration {
	return time.Since(s.startTime)
}

// Snapshot represents a point-in-time view of all metrics.
type Snapshot struct {
	Goroutines        int     `json:"goroutines"`
	TotalCommands     uint64  `json:"total_commands"`
	ActiveConnections int64   `json:"active_connections"`
	VectorsLive       int64   `json:"vectors_live"`
	BucketsAllocated  int64   `json:"buckets_allocated"`
	TotalInserts      uint64  `json:"total_inserts"`
	TotalDeletes      uint64  `json:"total_deletes"`
	TotalSearches     uint64  `json:"total_searches"`
	MemoryUsageMB     float64 `json:"memory_usage_mb"`
	Uptime            string  `json:"uptime"`
	QPS               float64 `json:"qps"` // Queries per second
}

// Snapshot creates a consistent snapshot of all metrics.
func (s *Stats) Snapshot() *Snapshot {
	uptime := s.GetUptime()
	totalCommands := s.GetTotalCommands()

	var qps float64
	if uptime.Seconds() > 0 {
		qps = float64(totalCommands) / uptime.Seconds()
	}

	return &Snapshot{
		Goroutines:        runtime.NumGoroutine(),
		TotalCommands:     totalCommands,
		ActiveConnections: s.GetActiveConnections(),
		VectorsLive:       s.GetVectorsLive(),
		BucketsAllocated:  s.GetBucketsAllocated(),
		TotalInserts:      s.totalInserts.Load(),
		TotalDeletes:      s.totalDeletes.Load(),
		TotalSearches:     s.totalSearches.Load(),
		MemoryUsageMB:     float64(s.GetMemoryUsage()) / 1024 / 1024,
		Uptime:            uptime.String(),
		QPS:               qps,
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (s *Stats) JSON() (string, error) {
	snapshot := s.Snapshot()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
