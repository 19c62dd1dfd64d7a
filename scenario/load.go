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

package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid indicates a scenario document that failed validation.
// All validation failures wrap this sentinel.
var ErrInvalid = errors.New("scenario: invalid")

const (
	minRubricWeight = 0.5
	maxRubricWeight = 2.0

	// weightSumTolerance absorbs float formatting noise in authored
	// dimension weights.
	weightSumTolerance = 1e-6
)

// Parse decodes and validates a single scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and validates one scenario from a YAML file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadDir loads every .yaml/.yml scenario under dir, sorted by file name.
// Any invalid document fails the whole load: broken scenarios are fatal,
// never skipped.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("%w: scenario id %q declared in both %s and %s", ErrInvalid, s.ID, prev, p)
		}
		seen[s.ID] = p
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validate(s *Scenario) error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing scenario id", ErrInvalid)
	}
	if len(s.Turns) == 0 {
		return fmt.Errorf("%w: scenario %q has no turns", ErrInvalid, s.ID)
	}

	if err := validateWeights(s.DimensionWeights); err != nil {
		return fmt.Errorf("%w: scenario %q: %v", ErrInvalid, s.ID, err)
	}

	rubricIDs := make(map[string]bool)
	turnNumbers := make(map[int]bool)
	for i := range s.Turns {
		t := &s.Turns[i]
		if t.TurnNumber <= 0 {
			return fmt.Errorf("%w: scenario %q: turn_number must be positive, got %d", ErrInvalid, s.ID, t.TurnNumber)
		}
		if turnNumbers[t.TurnNumber] {
			return fmt.Errorf("%w: scenario %q: duplicate turn_number %d", ErrInvalid, s.ID, t.TurnNumber)
		}
		turnNumbers[t.TurnNumber] = true
		if t.DefaultUserMessage == "" {
			return fmt.Errorf("%w: scenario %q turn %d: missing default_user_message", ErrInvalid, s.ID, t.TurnNumber)
		}

		if err := validateBranches(t); err != nil {
			return fmt.Errorf("%w: scenario %q turn %d: %v", ErrInvalid, s.ID, t.TurnNumber, err)
		}

		for j := range t.Rubric {
			if err := validateRubricItem(&t.Rubric[j], rubricIDs, false); err != nil {
				return fmt.Errorf("%w: scenario %q turn %d: %v", ErrInvalid, s.ID, t.TurnNumber, err)
			}
		}
		for j := range t.AutofailRubric {
			if err := validateRubricItem(&t.AutofailRubric[j], rubricIDs, true); err != nil {
				return fmt.Errorf("%w: scenario %q turn %d: %v", ErrInvalid, s.ID, t.TurnNumber, err)
			}
		}
	}
	return nil
}

func validateWeights(weights map[Dimension]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("missing dimension_weights")
	}
	sum := 0.0
	for d, w := range weights {
		if !d.Valid() {
			return fmt.Errorf("unknown dimension %q in dimension_weights", d)
		}
		if w < 0 {
			return fmt.Errorf("negative weight %v for dimension %q", w, d)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("dimension_weights sum to %v, want 1.0", sum)
	}
	return nil
}

// validateBranches compiles every condition and rejects ambiguity.
// Overlapping conditions are legal and resolved by declaration order;
// only duplicate (indistinguishable) conditions and duplicate branch IDs
// are ambiguous, because ordering cannot be authored against them.
func validateBranches(t *Turn) error {
	ids := make(map[string]bool)
	fingerprints := make(map[string]string)
	for i := range t.Branches {
		b := &t.Branches[i]
		if b.BranchID == "" {
			return fmt.Errorf("branch %d: missing branch_id", i)
		}
		if ids[b.BranchID] {
			return fmt.Errorf("duplicate branch_id %q", b.BranchID)
		}
		ids[b.BranchID] = true
		if b.UserMessage == "" {
			return fmt.Errorf("branch %q: missing user_message", b.BranchID)
		}
		if err := b.Condition.compile(); err != nil {
			return fmt.Errorf("branch %q: %v", b.BranchID, err)
		}
		fp := b.Condition.fingerprint()
		if prev, ok := fingerprints[fp]; ok {
			return fmt.Errorf("ambiguous branches %q and %q: identical conditions", prev, b.BranchID)
		}
		fingerprints[fp] = b.BranchID
	}
	return nil
}

func validateRubricItem(item *RubricItem, seen map[string]bool, autofail bool) error {
	if item.ID == "" {
		return fmt.Errorf("rubric item with empty id")
	}
	if seen[item.ID] {
		return fmt.Errorf("duplicate rubric id %q", item.ID)
	}
	seen[item.ID] = true
	if item.Question == "" {
		return fmt.Errorf("rubric item %q: missing question", item.ID)
	}
	if !item.Dimension.Valid() {
		return fmt.Errorf("rubric item %q: unknown dimension %q", item.ID, item.Dimension)
	}
	if item.Weight == 0 {
		item.Weight = 1.0
	}
	if item.Weight < minRubricWeight || item.Weight > maxRubricWeight {
		return fmt.Errorf("rubric item %q: weight %v outside [%v, %v]", item.ID, item.Weight, minRubricWeight, maxRubricWeight)
	}
	item.TriggersHardFail = autofail
	return nil
}
