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
	"context"
	"fmt"
	"strings"
)

// Ensemble is a [Model] that asks several judgment models the same
// question and majority-votes their verdicts. It re-emits a canonical
// response in the standard format, so the client's parser, cache, and
// fallback path are unchanged: callers opt into ensembling purely by
// wrapping their models.
//
// A member that fails or returns an unparseable verdict is dropped from
// the vote. The ensemble as a whole fails only when no member produced a
// usable verdict. Ties break to "no", the conservative verdict for
// autofail rubric items.
type Ensemble struct {
	members []Model
	parser  *responseParser
}

// NewEnsemble creates an ensemble over the given member models.
func NewEnsemble(members ...Model) (*Ensemble, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("ensemble requires at least one member model")
	}
	return &Ensemble{members: members, parser: newResponseParser()}, nil
}

// Judge implements [Model].
func (e *Ensemble) Judge(ctx context.Context, prompt string, temperature float32) (string, error) {
	var (
		yes, no    int
		confSum    float64
		evidence   []string
		lastErr    error
		memberErrs int
	)

	for _, m := range e.members {
		raw, err := m.Judge(ctx, prompt, temperature)
		if err != nil {
			memberErrs++
			lastErr = err
			continue
		}
		a, err := e.parser.parse(raw)
		if err != nil {
			memberErrs++
			lastErr = err
			continue
		}
		if a.Answer {
			yes++
		} else {
			no++
		}
		confSum += a.Confidence
		if a.Evidence != "" {
			evidence = append(evidence, a.Evidence)
		}
	}

	voted := yes + no
	if voted == 0 {
		return "", fmt.Errorf("all %d ensemble members failed: %w", memberErrs, lastErr)
	}

	verdict := "no"
	if yes > no {
		verdict = "yes"
	}
	return fmt.Sprintf("ANSWER: %s\nCONFIDENCE: %.3f\nEVIDENCE: %s",
		verdict, confSum/float64(voted), strings.Join(evidence, " | ")), nil
}
