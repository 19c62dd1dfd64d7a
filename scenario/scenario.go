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

// Package scenario defines the immutable model of a scripted multi-turn
// conversation: ordered turns with default user messages, adaptive branch
// rules, and yes/no rubric items tagged by evaluation dimension.
//
// Scenarios are loaded once from YAML documents and fully validated at load
// time. Any schema violation, ambiguous branch rule, or malformed condition
// is a load error and is never deferred to evaluation time.
package scenario

// Dimension is a named axis that rubric items are aggregated into.
type Dimension string

const (
	DimensionSafety       Dimension = "safety"
	DimensionCompliance   Dimension = "compliance"
	DimensionAttunement   Dimension = "attunement"
	DimensionBelonging    Dimension = "belonging"
	DimensionFalseRefusal Dimension = "false_refusal"
	DimensionMemory       Dimension = "memory"
	DimensionConsistency  Dimension = "consistency"
)

// AllDimensions returns every known dimension in stable order.
func AllDimensions() []Dimension {
	return []Dimension{
		DimensionSafety,
		DimensionCompliance,
		DimensionAttunement,
		DimensionBelonging,
		DimensionFalseRefusal,
		DimensionMemory,
		DimensionConsistency,
	}
}

// Valid reports whether d is one of the known dimensions.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionSafety, DimensionCompliance, DimensionAttunement,
		DimensionBelonging, DimensionFalseRefusal, DimensionMemory,
		DimensionConsistency:
		return true
	default:
		return false
	}
}

// CrossTurn reports whether judging items of this dimension requires
// earlier turns of the transcript rather than the current exchange alone.
func (d Dimension) CrossTurn() bool {
	return d == DimensionMemory || d == DimensionConsistency
}

// String returns the string representation of the dimension.
func (d Dimension) String() string {
	return string(d)
}

// RubricItem is a single yes/no question tied to one dimension. Each item
// is evaluated exactly once per turn it is attached to.
type RubricItem struct {
	ID        string    `yaml:"id" json:"id"`
	Question  string    `yaml:"question" json:"question"`
	Dimension Dimension `yaml:"dimension" json:"dimension"`

	// Weight of this item in the dimension mean, 0.5-2.0. Zero means
	// unset and defaults to 1.0 at load time.
	Weight float64 `yaml:"weight,omitempty" json:"weight"`

	// TriggersHardFail marks autofail items: a "yes" answer forces a
	// hard fail for the whole run. Set by the loader, not by authors.
	TriggersHardFail bool `yaml:"-" json:"triggers_hard_fail,omitempty"`
}

// BranchRule replaces a turn's default user message when the
// system-under-test's prior reply matches its condition.
type BranchRule struct {
	BranchID    string    `yaml:"branch_id" json:"branch_id"`
	Condition   Condition `yaml:"condition" json:"condition"`
	UserMessage string    `yaml:"user_message" json:"user_message"`
}

// Turn is one scripted step of the conversation. Turns are owned
// exclusively by their scenario and are never shared.
type Turn struct {
	TurnNumber         int          `yaml:"turn_number" json:"turn_number"`
	DefaultUserMessage string       `yaml:"default_user_message" json:"default_user_message"`
	Branches           []BranchRule `yaml:"branches,omitempty" json:"branches,omitempty"`
	Rubric             []RubricItem `yaml:"rubric,omitempty" json:"rubric,omitempty"`
	AutofailRubric     []RubricItem `yaml:"autofail_rubric,omitempty" json:"autofail_rubric,omitempty"`
}

// Scenario is a complete scripted conversation plus its scoring recipe.
// It is read-only after load.
type Scenario struct {
	ID       string `yaml:"id" json:"id"`
	Tier     string `yaml:"tier" json:"tier"`
	Category string `yaml:"category" json:"category"`

	// DimensionWeights define the contribution of each quality dimension
	// to the overall score. They must sum to 1.0.
	DimensionWeights map[Dimension]float64 `yaml:"dimension_weights" json:"dimension_weights"`

	Turns []Turn `yaml:"turns" json:"turns"`
}

// Turn returns the turn with the given number, or nil.
func (s *Scenario) Turn(number int) *Turn {
	for i := range s.Turns {
		if s.Turns[i].TurnNumber == number {
			return &s.Turns[i]
		}
	}
	return nil
}
