// Copyright 2025 Google LLC
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

package storage

import (
	"context"
	"sort"
	"sync"

	"google.golang.org/convobench/scoring"
)

// MemoryStore keeps run results in memory. Suitable for tests and
// development.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*scoring.RunResult
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]*scoring.RunResult)}
}

// SaveRunResult stores one run result.
func (m *MemoryStore) SaveRunResult(ctx context.Context, result *scoring.RunResult) error {
	if result == nil || result.RunID == "" {
		return ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Shallow copy guards against caller mutation of the envelope.
	copied := *result
	m.results[result.RunID] = &copied
	return nil
}

// GetRunResult retrieves a run result by run ID.
func (m *MemoryStore) GetRunResult(ctx context.Context, runID string) (*scoring.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.results[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *result
	return &copied, nil
}

// ListRunResults returns stored results for a scenario, newest first.
func (m *MemoryStore) ListRunResults(ctx context.Context, scenarioID string) ([]scoring.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]scoring.RunResult, 0, len(m.results))
	for _, r := range m.results {
		if scenarioID != "" && r.ScenarioID != scenarioID {
			continue
		}
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].StartedAt.After(results[j].StartedAt)
		}
		return results[i].RunID < results[j].RunID
	})
	return results, nil
}

// DeleteRunResult removes a run result.
func (m *MemoryStore) DeleteRunResult(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.results[runID]; !ok {
		return ErrNotFound
	}
	delete(m.results, runID)
	return nil
}
