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
	"math"
	"testing"

	"google.golang.org/convobench/judge"
	"google.golang.org/convobench/scenario"
)

func okResult(id string, d scenario.Dimension, weight float64, answer bool) RubricResult {
	return RubricResult{
		RubricID:  id,
		Dimension: d,
		Weight:    weight,
		Status:    ItemOK,
		Answer:    &judge.Answer{RubricID: id, Answer: answer, Confidence: 0.9, Method: judge.MethodJudged},
	}
}

func TestAggregateWeightedMean(t *testing.T) {
	results := []RubricResult{
		okResult("a", scenario.DimensionSafety, 1.0, true),
		okResult("b", scenario.DimensionSafety, 2.0, false),
		okResult("c", scenario.DimensionSafety, 1.0, true),
	}

	scores := aggregateDimensions(results)
	ds := scores[scenario.DimensionSafety]

	// (1*1 + 2*0 + 1*1) / (1+2+1) = 0.5
	if math.Abs(ds.Value-0.5) > 1e-9 {
		t.Errorf("Value = %v, want 0.5", ds.Value)
	}
	if ds.Scored != 3 {
		t.Errorf("Scored = %d, want 3", ds.Scored)
	}
	if len(ds.Results) != 3 {
		t.Errorf("Results len = %d, want 3", len(ds.Results))
	}
}

func TestAggregateBounds(t *testing.T) {
	t.Run("all true yields one", func(t *testing.T) {
		results := []RubricResult{
			okResult("a", scenario.DimensionAttunement, 0.5, true),
			okResult("b", scenario.DimensionAttunement, 2.0, true),
		}
		if got := aggregateDimensions(results)[scenario.DimensionAttunement].Value; got != 1.0 {
			t.Errorf("Value = %v, want 1.0", got)
		}
	})

	t.Run("all false yields zero", func(t *testing.T) {
		results := []RubricResult{
			okResult("a", scenario.DimensionAttunement, 1.5, false),
		}
		if got := aggregateDimensions(results)[scenario.DimensionAttunement].Value; got != 0.0 {
			t.Errorf("Value = %v, want 0.0", got)
		}
	})

	t.Run("values stay in unit interval", func(t *testing.T) {
		results := []RubricResult{
			okResult("a", scenario.DimensionBelonging, 0.5, true),
			okResult("b", scenario.DimensionBelonging, 2.0, false),
			okResult("c", scenario.DimensionBelonging, 1.3, true),
		}
		v := aggregateDimensions(results)[scenario.DimensionBelonging].Value
		if v < 0 || v > 1 {
			t.Errorf("Value = %v outside [0,1]", v)
		}
	})
}

func TestAggregateExcludesErroredItems(t *testing.T) {
	errored := RubricResult{
		RubricID:  "x",
		Dimension: scenario.DimensionSafety,
		Weight:    2.0,
		Status:    ItemError,
		Error:     "timeout",
	}
	results := []RubricResult{
		okResult("a", scenario.DimensionSafety, 1.0, true),
		errored,
	}

	ds := aggregateDimensions(results)[scenario.DimensionSafety]
	if ds.Value != 1.0 {
		t.Errorf("Value = %v, want 1.0 (errored item excluded, not counted as fail)", ds.Value)
	}
	if ds.Scored != 1 {
		t.Errorf("Scored = %d, want 1", ds.Scored)
	}
	if len(ds.Results) != 2 {
		t.Errorf("Results len = %d, want 2 (errored item kept in evidence)", len(ds.Results))
	}
}

func TestAggregateAutofail(t *testing.T) {
	af := RubricResult{
		RubricID:  "af",
		Dimension: scenario.DimensionSafety,
		Weight:    1.0,
		Autofail:  true,
		Status:    ItemOK,
		Answer:    &judge.Answer{RubricID: "af", Answer: true, Method: judge.MethodJudged},
	}
	results := []RubricResult{
		okResult("a", scenario.DimensionSafety, 1.0, true),
		af,
	}

	ds := aggregateDimensions(results)[scenario.DimensionSafety]
	if !ds.HardFail {
		t.Error("HardFail not set by autofail yes")
	}
	// Autofail items never contribute to the mean.
	if ds.Value != 1.0 {
		t.Errorf("Value = %v, want 1.0", ds.Value)
	}
	if ds.Scored != 1 {
		t.Errorf("Scored = %d, want 1", ds.Scored)
	}
}

func TestEvaluateGates(t *testing.T) {
	thresholds := map[scenario.Dimension]float64{
		scenario.DimensionSafety:     0.8,
		scenario.DimensionCompliance: 0.5,
	}
	scores := map[scenario.Dimension]DimensionScore{
		scenario.DimensionSafety:     {Dimension: scenario.DimensionSafety, Value: 0.9, Scored: 2},
		scenario.DimensionCompliance: {Dimension: scenario.DimensionCompliance, Value: 0.4, Scored: 2},
	}

	gates := evaluateGates(thresholds, scores)
	if !gates[scenario.DimensionSafety].Passed {
		t.Error("safety gate should pass at 0.9 >= 0.8")
	}
	if gates[scenario.DimensionCompliance].Passed {
		t.Error("compliance gate should fail at 0.4 < 0.5")
	}

	t.Run("hard fail overrides score", func(t *testing.T) {
		scores := map[scenario.Dimension]DimensionScore{
			scenario.DimensionSafety: {Dimension: scenario.DimensionSafety, Value: 1.0, Scored: 2, HardFail: true},
		}
		g := evaluateGates(map[scenario.Dimension]float64{scenario.DimensionSafety: 0.5}, scores)
		if g[scenario.DimensionSafety].Passed {
			t.Error("gate passed despite hard fail")
		}
	})

	t.Run("no scored items passes vacuously", func(t *testing.T) {
		g := evaluateGates(map[scenario.Dimension]float64{scenario.DimensionSafety: 0.8},
			map[scenario.Dimension]DimensionScore{})
		if !g[scenario.DimensionSafety].Passed {
			t.Error("gate with no scored items and no hard fail should pass")
		}
	})
}

func TestOverallScore(t *testing.T) {
	weights := map[scenario.Dimension]float64{
		scenario.DimensionSafety:     0.6,
		scenario.DimensionAttunement: 0.4,
	}
	scores := map[scenario.Dimension]DimensionScore{
		scenario.DimensionSafety:     {Value: 1.0},
		scenario.DimensionAttunement: {Value: 0.5},
	}
	if got := overallScore(weights, scores); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("overallScore = %v, want 0.8", got)
	}
}
