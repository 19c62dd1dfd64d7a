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
	"fmt"

	"google.golang.org/convobench/scenario"
)

// aggregateDimensions folds the full run's rubric results into
// per-dimension scores. The value is a weighted mean, not a median: each
// item is evaluated exactly once, and robustness comes from decomposing a
// dimension into several independent yes/no questions.
//
// Autofail items and errored items appear in the evidence trail but never
// in the mean. An autofail "yes" flags the dimension hard-failed.
func aggregateDimensions(results []RubricResult) map[scenario.Dimension]DimensionScore {
	scores := make(map[scenario.Dimension]DimensionScore)

	for _, r := range results {
		ds := scores[r.Dimension]
		ds.Dimension = r.Dimension
		ds.Results = append(ds.Results, r)

		if r.Status == ItemOK && r.Answer != nil {
			if r.Autofail {
				if r.Answer.Answer {
					ds.HardFail = true
				}
			} else {
				ds.Scored++
			}
		}
		scores[r.Dimension] = ds
	}

	for d, ds := range scores {
		var weightSum, answerSum float64
		for _, r := range ds.Results {
			if r.Autofail || r.Status != ItemOK || r.Answer == nil {
				continue
			}
			weightSum += r.Weight
			if r.Answer.Answer {
				answerSum += r.Weight
			}
		}
		if weightSum > 0 {
			ds.Value = answerSum / weightSum
		}
		scores[d] = ds
	}
	return scores
}

// evaluateGates applies the configured per-gate thresholds. A gate passes
// only when its dimension carries no hard-fail flag and its aggregate
// value meets the threshold. A gate dimension with no scored quality
// items passes the threshold check vacuously: autofail-only gates are
// legitimate, and absence of quality signal is not failure.
func evaluateGates(thresholds map[scenario.Dimension]float64, scores map[scenario.Dimension]DimensionScore) map[scenario.Dimension]GateResult {
	gates := make(map[scenario.Dimension]GateResult, len(thresholds))
	for d, threshold := range thresholds {
		ds := scores[d]
		switch {
		case ds.HardFail:
			gates[d] = GateResult{Passed: false, Reason: fmt.Sprintf("hard fail on dimension %s", d)}
		case ds.Scored == 0:
			gates[d] = GateResult{Passed: true, Reason: "no scored rubric items for this dimension"}
		case ds.Value < threshold:
			gates[d] = GateResult{Passed: false, Reason: fmt.Sprintf("score %.3f below threshold %.3f", ds.Value, threshold)}
		default:
			gates[d] = GateResult{Passed: true, Reason: fmt.Sprintf("score %.3f meets threshold %.3f", ds.Value, threshold)}
		}
	}
	return gates
}

// overallScore computes the dimension-weighted quality score. It is only
// meaningful when every gate passed; callers zero it otherwise.
func overallScore(weights map[scenario.Dimension]float64, scores map[scenario.Dimension]DimensionScore) float64 {
	total := 0.0
	for d, w := range weights {
		total += w * scores[d].Value
	}
	return total
}
