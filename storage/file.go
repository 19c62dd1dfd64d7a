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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"google.golang.org/convobench/scoring"
)

// FileStore persists run results as JSON files:
//
//	<basePath>/results/<runID>.json
type FileStore struct {
	mu       sync.RWMutex
	basePath string
}

// NewFileStore creates a file-based store rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "results"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (f *FileStore) resultPath(runID string) string {
	return filepath.Join(f.basePath, "results", runID+".json")
}

// SaveRunResult stores one run result.
func (f *FileStore) SaveRunResult(ctx context.Context, result *scoring.RunResult) error {
	if result == nil || result.RunID == "" {
		return ErrInvalidInput
	}
	if strings.ContainsAny(result.RunID, `/\`) {
		return ErrInvalidInput
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run result: %w", err)
	}
	if err := os.WriteFile(f.resultPath(result.RunID), data, 0644); err != nil {
		return fmt.Errorf("failed to write run result: %w", err)
	}
	return nil
}

// GetRunResult retrieves a run result by run ID.
func (f *FileStore) GetRunResult(ctx context.Context, runID string) (*scoring.RunResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.resultPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read run result: %w", err)
	}

	var result scoring.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run result: %w", err)
	}
	return &result, nil
}

// ListRunResults returns stored results for a scenario, newest first.
func (f *FileStore) ListRunResults(ctx context.Context, scenarioID string) ([]scoring.RunResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(f.basePath, "results"))
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var results []scoring.RunResult
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.basePath, "results", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		var r scoring.RunResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", e.Name(), err)
		}
		if scenarioID != "" && r.ScenarioID != scenarioID {
			continue
		}
		results = append(results, r)
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
func (f *FileStore) DeleteRunResult(ctx context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.resultPath(runID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}
