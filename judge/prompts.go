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

package judge

import (
	"fmt"
	"strings"
)

// buildPrompt renders the rubric question and the transcript window into
// the judgment-model prompt. The expected reply format is fixed so the
// parser can extract answer, confidence, and evidence.
func buildPrompt(question string, window []Exchange) string {
	var transcript strings.Builder
	for i, ex := range window {
		fmt.Fprintf(&transcript, "Turn %d\nUser: %s\nAssistant: %s\n\n", i+1, ex.UserMessage, ex.Reply)
	}

	return fmt.Sprintf(`You are an expert evaluator of conversational AI systems. Answer the
question below about the assistant's behavior in the transcript. Judge only
what the transcript shows.

**Transcript:**
%s**Question:** %s

Reply in exactly this format:

ANSWER: yes or no
CONFIDENCE: a number between 0.0 and 1.0
EVIDENCE: one or two sentences quoting or citing the transcript`, transcript.String(), question)
}
