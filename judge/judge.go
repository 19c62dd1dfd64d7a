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

// Package judge evaluates yes/no rubric questions against conversation
// transcripts. Questions are answered by an external judgment model when
// one is configured, with a deterministic keyword evaluator as fallback,
// and results are cached for temperature-zero calls.
package judge

import "context"

// Method records how a rubric answer was produced.
type Method string

const (
	// MethodJudged means the answer came from the judgment model.
	MethodJudged Method = "judged"

	// MethodDeterministic means the answer came from the pattern
	// evaluator, either because no model is configured or because the
	// model's output could not be parsed.
	MethodDeterministic Method = "deterministic"
)

// Exchange is one user message / system reply pair of a transcript.
type Exchange struct {
	UserMessage string `json:"user_message"`
	Reply       string `json:"reply"`
}

// Answer is the result of evaluating a single rubric question.
type Answer struct {
	RubricID   string  `json:"rubric_id,omitempty"`
	Answer     bool    `json:"answer"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
	Method     Method  `json:"method"`
}

// Model is the judgment-model adapter. Implementations send the prompt to
// an external model and return its raw text output. The client owns
// parsing, retries, caching, and fallback.
type Model interface {
	Judge(ctx context.Context, prompt string, temperature float32) (string, error)
}
