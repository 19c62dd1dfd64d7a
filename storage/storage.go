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

// Package storage persists benchmark run results. Three backends are
// provided: in-memory for tests, JSON files for local runs, and SQLite
// for keeping a queryable history across benchmark invocations.
package storage

import (
	"context"
	"errors"

	"google.golang.org/convobench/scoring"
)

var (
	// ErrNotFound indicates the requested run result was not found.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.New("storage: invalid input")
)

// Store defines persistence for run results.
type Store interface {
	// SaveRunResult stores one run result.
	SaveRunResult(ctx context.Context, result *scoring.RunResult) error

	// GetRunResult retrieves a run result by run ID.
	GetRunResult(ctx context.Context, runID string) (*scoring.RunResult, error)

	// ListRunResults returns every stored result for a scenario, newest
	// first. An empty scenario ID lists everything.
	ListRunResults(ctx context.Context, scenarioID string) ([]scoring.RunResult, error)

	// DeleteRunResult removes a run result.
	DeleteRunResult(ctx context.Context, runID string) error
}
