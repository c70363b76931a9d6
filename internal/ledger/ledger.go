// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ledger tracks review identifiers that have already been emitted,
// so repeated runs against the same title only write new reviews.
//
// A Ledger is seeded from prior output artifacts (see ScanOutputs), queried
// with IsNew and grown with MarkSeen or Seed. It never shrinks. Callers that
// buffer output should only grow a shared ledger once that output is
// written. Two backends exist: Memory for single-host runs and Redis for a
// ledger shared between hosts.
package ledger

import (
	"context"
	"sort"
	"sync"
)

// Ledger is the set of review identifiers already emitted.
type Ledger interface {
	// Seed adds every id to the seen-set. Empty ids are ignored.
	Seed(ctx context.Context, ids []string) error

	// IsNew reports whether id has not been seen.
	IsNew(ctx context.Context, id string) (bool, error)

	// MarkSeen adds id to the seen-set.
	MarkSeen(ctx context.Context, id string) error

	// Len returns the size of the seen-set.
	Len(ctx context.Context) (int, error)
}

// Memory is an in-process Ledger.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

// Seed implements Ledger.
func (m *Memory) Seed(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			m.seen[id] = struct{}{}
		}
	}
	return nil
}

// IsNew implements Ledger.
func (m *Memory) IsNew(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[id]
	return !ok, nil
}

// MarkSeen implements Ledger.
func (m *Memory) MarkSeen(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[id] = struct{}{}
	return nil
}

// IDs returns the seen-set in sorted order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.seen))
	for id := range m.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len implements Ledger.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen), nil
}
