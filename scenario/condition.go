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
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ConditionKind discriminates the supported branch predicate forms.
// Conditions are deliberately a restricted script, not a general
// interpreter: keyword and regex predicates only.
type ConditionKind string

const (
	// ConditionKeyword matches when the prior reply contains any of the
	// listed keywords, case-insensitively.
	ConditionKeyword ConditionKind = "keyword"

	// ConditionRegex matches when the prior reply matches the pattern.
	ConditionRegex ConditionKind = "regex"
)

// Condition is a predicate over the system-under-test's prior reply.
// Exactly one of Keywords or Pattern is set, according to Kind.
type Condition struct {
	Kind     ConditionKind `yaml:"kind" json:"kind"`
	Keywords []string      `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Pattern  string        `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	re *regexp.Regexp
}

// compile validates the condition and prepares it for matching.
// Malformed conditions are load-time errors only; Matches never fails.
func (c *Condition) compile() error {
	switch c.Kind {
	case ConditionKeyword:
		if len(c.Keywords) == 0 {
			return fmt.Errorf("keyword condition requires at least one keyword")
		}
		for _, kw := range c.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("keyword condition contains an empty keyword")
			}
		}
		if c.Pattern != "" {
			return fmt.Errorf("keyword condition must not set a pattern")
		}
		return nil
	case ConditionRegex:
		if c.Pattern == "" {
			return fmt.Errorf("regex condition requires a pattern")
		}
		if len(c.Keywords) > 0 {
			return fmt.Errorf("regex condition must not set keywords")
		}
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
		}
		c.re = re
		return nil
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}

// Matches reports whether the prior reply satisfies the condition.
// It is total and side-effect free; compile must have succeeded first.
func (c *Condition) Matches(reply string) bool {
	switch c.Kind {
	case ConditionKeyword:
		lower := strings.ToLower(reply)
		for _, kw := range c.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	case ConditionRegex:
		if c.re == nil {
			return false
		}
		return c.re.MatchString(reply)
	default:
		return false
	}
}

// fingerprint returns a canonical form used to reject duplicate conditions
// on the same turn. Two branches with indistinguishable conditions are
// ambiguous: declaration order cannot meaningfully disambiguate them.
func (c *Condition) fingerprint() string {
	switch c.Kind {
	case ConditionKeyword:
		kws := make([]string, len(c.Keywords))
		for i, kw := range c.Keywords {
			kws[i] = strings.ToLower(strings.TrimSpace(kw))
		}
		sort.Strings(kws)
		return "keyword:" + strings.Join(kws, "\x00")
	case ConditionRegex:
		return "regex:" + c.Pattern
	default:
		return "unknown"
	}
}
