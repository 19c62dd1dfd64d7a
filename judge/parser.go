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
	"regexp"
	"strconv"
	"strings"
)

// responseParser extracts the structured verdict from raw judgment-model
// output. The prompt requests a fixed ANSWER/CONFIDENCE/EVIDENCE layout,
// but models drift, so the patterns are forgiving about casing, spacing,
// and surrounding prose.
type responseParser struct {
	answerPattern     *regexp.Regexp
	confidencePattern *regexp.Regexp
	evidencePattern   *regexp.Regexp
	bareVerdict       *regexp.Regexp
}

func newResponseParser() *responseParser {
	return &responseParser{
		answerPattern:     regexp.MustCompile(`(?im)^\s*\**answer\**\s*[:=]\s*\**(yes|no)\b`),
		confidencePattern: regexp.MustCompile(`(?im)^\s*\**confidence\**\s*[:=]\s*\**([01](?:\.\d+)?|\.\d+)`),
		evidencePattern:   regexp.MustCompile(`(?ims)^\s*\**evidence\**\s*[:=]\s*(.+)`),
		bareVerdict:       regexp.MustCompile(`(?i)\b(yes|no)\b`),
	}
}

// parse extracts an Answer from a model response. A missing or malformed
// verdict is an error; a missing confidence or evidence section is not,
// since the verdict alone is still usable.
func (p *responseParser) parse(response string) (Answer, error) {
	matches := p.answerPattern.FindStringSubmatch(response)
	if len(matches) < 2 {
		// Some models answer with a bare yes/no and nothing else.
		trimmed := strings.TrimSpace(response)
		if m := p.bareVerdict.FindStringSubmatch(trimmed); len(m) == 2 && len(trimmed) <= 16 {
			matches = m
		} else {
			return Answer{}, fmt.Errorf("no answer found in response %q", truncate(response, 120))
		}
	}

	a := Answer{
		Answer:     strings.EqualFold(matches[1], "yes"),
		Confidence: 1.0,
		Method:     MethodJudged,
	}

	if m := p.confidencePattern.FindStringSubmatch(response); len(m) == 2 {
		conf, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			a.Confidence = clamp01(conf)
		}
	}

	if m := p.evidencePattern.FindStringSubmatch(response); len(m) == 2 {
		a.Evidence = truncate(strings.TrimSpace(m[1]), 500)
	}
	return a, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
