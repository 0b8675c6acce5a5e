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

// Package registry maintains the bidirectional association between an
// engine-encoded vector ID and the external record identifier a caller
// uses to name it. It is a thin boundary adapter: the engine never knows
// about external IDs, and the registry never knows about vector math.
package registry

import "sync"

// Registry maps engine-encoded internal IDs to caller-supplied external
// IDs and back. It never outlives the table it was built for; on process
// restart it is rebuilt by replaying the external record store.
type Registry struct {
	mu         sync.RWMutex
	byInternal map[int32]string
	byExternal map[string]int32
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byInternal: make(map[int32]string),
		byExternal: make(map[string]int32),
	}
}

// Bind associates an internal ID with an external ID, overwriting any prior
// association for either side.
func (r *Registry) Bind(internalID int32, externalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byExternal[externalID]; ok {
		delete(r.byInternal, old)
	}
	if oldExt, ok := r.byInternal[internalID]; ok {
		delete(r.byExternal, oldExt)
	}
	r.byInternal[internalID] = externalID
	r.byExternal[externalID] = internalID
}

// Lookup resolves an internal ID to its external ID.
func (r *Registry) Lookup(internalID int32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	externalID, ok := r.byInternal[internalID]
	return externalID, ok
}

// InternalID resolves an external ID to its internal ID. This is the
// delete-by-external path; a linear-scan-equivalent map lookup is fine
// here since it is not part of the search hot path.
func (r *Registry) InternalID(externalID string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	internalID, ok := r.byExternal[externalID]
	return internalID, ok
}

// Unbind removes both directions of the association for an external ID.
// A no-op if the external ID is unknown.
func (r *Registry) Unbind(externalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	internalID, ok := r.byExternal[externalID]
	if !ok {
		return
	}
	delete(r.byExternal, externalID)
	delete(r.byInternal, internalID)
}

// UnbindInternal removes both directions of the association for an
// internal ID. A no-op if the internal ID is unknown.
func (r *Registry) UnbindInternal(internalID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	externalID, ok := r.byInternal[internalID]
	if !ok {
		return
	}
	delete(r.byInternal, internalID)
	delete(r.byExternal, externalID)
}

// List returns every registered external ID. Order is unspecified.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byExternal))
	for id := range r.byExternal {
		out = append(out, id)
	}
	return out
}

// Len returns the number of registered associations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byExternal)
}

// Clear removes every association.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byInternal = make(map[int32]string)
	r.byExternal = make(map[string]int32)
}
