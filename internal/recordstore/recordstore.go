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

// Package recordstore persists external records — embeddings plus
// arbitrary payload — to a directory of JSON files, one file per record,
// and replays them into a fresh engine table at boot. It is the pluggable
// object store the index core is rebuilt from; the core itself never
// touches disk.
package recordstore

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Record is one external record: one or more embeddings plus an arbitrary
// JSON payload.
type Record struct {
	ID         string         `json:"id"`
	Embeddings [][]float32    `json:"embeddings"`
	Data       map[string]any `json:"data,omitempty"`
}

// idLength is the number of hex characters kept from the SHA-256 digest.
const idLength = 16

// ComputeID derives a record's external ID from its first embedding: the
// first 16 hex characters of SHA-256 over the embedding's IEEE-754
// big-endian byte encoding.
func ComputeID(firstEmbedding []float32) string {
	buf := make([]byte, 4*len(firstEmbedding))
	for i, f := range firstEmbedding {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])[:idLength]
}

// Store is a directory of one JSON file per record, named <id>.rec.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recordstore: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// ValidID rejects any external ID that isn't a plain filename component,
// since it is joined directly into a filesystem path. This blocks path
// traversal (e.g. "../../etc/passwd") and absolute-path IDs from a
// caller-supplied VSET key.
func ValidID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".rec")
}

// Save writes rec to disk, deriving its ID from the first embedding if Rec.ID
// is empty. It returns the (possibly derived) ID.
func (s *Store) Save(rec Record) (string, error) {
	if len(rec.Embeddings) == 0 {
		return "", fmt.Errorf("recordstore: record has no embeddings")
	}
	if rec.ID == "" {
		rec.ID = ComputeID(rec.Embeddings[0])
	}
	if !ValidID(rec.ID) {
		return "", fmt.Errorf("recordstore: invalid record id %q", rec.ID)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("recordstore: marshaling %s: %w", rec.ID, err)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0o644); err != nil {
		return "", fmt.Errorf("recordstore: writing %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// Load reads a single record by its external ID.
func (s *Store) Load(id string) (Record, error) {
	if !ValidID(id) {
		return Record{}, fmt.Errorf("recordstore: invalid record id %q", id)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return Record{}, fmt.Errorf("recordstore: reading %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("recordstore: unmarshaling %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record's file. A no-op if it does not exist.
func (s *Store) Delete(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("recordstore: invalid record id %q", id)
	}
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("recordstore: deleting %s: %w", id, err)
	}
	return nil
}

// All returns every record in the store, sorted by ID for determinism.
func (s *Store) All() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("recordstore: listing %s: %w", s.dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rec") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".rec"))
	}
	sort.Strings(ids)

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
