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

package scoring

import (
	"time"

	"google.golang.org/convobench/judge"
	"google.golang.org/convobench/scenario"
)

// ItemStatus marks whether a rubric item produced a usable answer.
type ItemStatus string

const (
	ItemOK ItemStatus = "ok"

	// ItemError means retries were exhausted on this item. Errored items
	// are excluded from dimension aggregation, counted neither as pass
	// nor fail, and the omission is recorded on the verdict.
	ItemError ItemStatus = "error"
)

// RubricResult is the evidence-trail record for one rubric item on one
// turn.
type RubricResult struct {
	RubricID   string             `json:"rubric_id"`
	TurnNumber int                `json:"turn_number"`
	Question   string             `json:"question"`
	Dimension  scenario.Dimension `json:"dimension"`
	Weight     float64            `json:"weight"`
	Autofail   bool               `json:"autofail,omitempty"`
	Status     ItemStatus         `json:"status"`
	Answer     *judge.Answer      `json:"answer,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// DimensionScore aggregates every rubric answer tagged with one
// dimension across all turns of a run.
type DimensionScore struct {
	Dimension scenario.Dimension `json:"dimension"`

	// Value is the weighted mean over successfully scored quality items,
	// in [0, 1]. Autofail items carry no quality signal and do not
	// contribute.
	Value float64 `json:"value"`

	// Scored is how many quality items contributed to Value.
	Scored int `json:"scored_items"`

	// HardFail is set when any autofail item of this dimension answered
	// yes.
	HardFail bool `json:"hard_fail"`

	// Results is the full evidence trail, including autofail and errored
	// items.
	Results []RubricResult `json:"rubric_results"`
}

// GateResult is the outcome of one binary gate.
type GateResult struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// TurnRecord captures what actually happened on one turn.
type TurnRecord struct {
	TurnNumber  int        `json:"turn_number"`
	BranchID    string     `json:"branch_id,omitempty"`
	UserMessage string     `json:"user_message"`
	Reply       string     `json:"reply"`
	Status      ItemStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// Verdict is the complete outcome of evaluating one (scenario, system)
// pair. Given a scenario, a recorded reply sequence, and a
// temperature-zero judge, it is deterministically derivable, which makes
// exact replay possible.
type Verdict struct {
	ScenarioID string `json:"scenario_id"`

	Gates   map[scenario.Dimension]GateResult     `json:"gates"`
	Quality map[scenario.Dimension]DimensionScore `json:"quality"`

	// OverallScore is the dimension-weighted quality score when every
	// gate passed, and exactly 0.0 otherwise. Quality values stay
	// populated either way, as diagnostics only.
	OverallScore float64 `json:"overall_score"`

	HardFail       bool   `json:"hard_fail"`
	HardFailReason string `json:"hard_fail_reason,omitempty"`

	Transcript []TurnRecord `json:"transcript"`

	// Errors lists every item or turn excluded from aggregation after
	// retry exhaustion. A non-empty list means the verdict is
	// best-effort.
	Errors []string `json:"errors,omitempty"`

	// Contradictions surfaces turns where an autofail verdict and a
	// passing quality verdict on the same dimension disagreed. The
	// autofail result takes precedence; the disagreement is reported
	// rather than hidden.
	Contradictions []string `json:"contradictions,omitempty"`
}

// RunResult wraps a verdict with run identity and timing for storage.
type RunResult struct {
	RunID      string    `json:"run_id"`
	ScenarioID string    `json:"scenario_id"`
	TargetName string    `json:"target_name,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Verdict    *Verdict  `json:"verdict,omitempty"`
	Error      string    `json:"error,omitempty"`
}
