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

package recordstore

import (
	"log/slog"

	"github.com/uzqw/vex/internal/engine"
	"github.com/uzqw/vex/internal/registry"
)

// ReplayResult summarizes a boot-time replay of a record store into a
// freshly opened table.
type ReplayResult struct {
	Loaded  int
	Skipped int
}

// Replay loads every record in s and inserts its first embedding into tbl,
// binding the resulting internal ID to the record's external ID in reg.
// Records whose embedding width does not match the table's configured
// dimensionality are logged and skipped rather than treated as fatal,
// since the store may outlive a table opened with different dimensions.
func Replay(s *Store, tbl *engine.Table, reg *registry.Registry, log *slog.Logger) (ReplayResult, error) {
	records, err := s.All()
	if err != nil {
		return ReplayResult{}, err
	}

	var result ReplayResult
	for _, rec := range records {
		if len(rec.Embeddings) == 0 {
			log.Warn("skipping record with no embeddings", "id", rec.ID)
			result.Skipped++
			continue
		}
		v := rec.Embeddings[0]
		if len(v) != tbl.Dims() {
			log.Warn("skipping record with mismatched dimensions",
				"id", rec.ID, "want", tbl.Dims(), "got", len(v))
			result.Skipped++
			continue
		}

		internalID, err := tbl.Insert(v)
		if err != nil {
			log.Warn("skipping record that failed to insert", "id", rec.ID, "err", err)
			result.Skipped++
			continue
		}
		reg.Bind(internalID, rec.ID)
		result.Loaded++
	}

	log.Info("replay complete", "loaded", result.Loaded, "skipped", result.Skipped)
	return result, nil
}
