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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustCondition(t *testing.T, c Condition) Condition {
	t.Helper()
	if err := c.compile(); err != nil {
		t.Fatalf("condition failed to compile: %v", err)
	}
	return c
}

func TestResolveNext(t *testing.T) {
	turn := &Turn{
		TurnNumber:         2,
		DefaultUserMessage: "default message",
		Branches: []BranchRule{
			{
				BranchID:    "first",
				Condition:   Condition{Kind: ConditionKeyword, Keywords: []string{"can't help"}},
				UserMessage: "first branch message",
			},
			{
				BranchID:    "second",
				Condition:   Condition{Kind: ConditionKeyword, Keywords: []string{"help"}},
				UserMessage: "second branch message",
			},
			{
				BranchID:    "regex",
				Condition:   Condition{Kind: ConditionRegex, Pattern: `(?i)emergency\s+services`},
				UserMessage: "regex branch message",
			},
		},
	}
	for i := range turn.Branches {
		turn.Branches[i].Condition = mustCondition(t, turn.Branches[i].Condition)
	}

	tests := []struct {
		name       string
		priorReply string
		want       Resolution
	}{
		{
			name:       "no prior reply uses default",
			priorReply: "",
			want:       Resolution{UserMessage: "default message"},
		},
		{
			name:       "no match uses default",
			priorReply: "Here is a detailed plan for your situation.",
			want:       Resolution{UserMessage: "default message"},
		},
		{
			// Both the first and second branch match this reply; the
			// earlier-declared rule must win.
			name:       "first match wins on overlap",
			priorReply: "I'm sorry, I can't help with that.",
			want:       Resolution{UserMessage: "first branch message", BranchID: "first"},
		},
		{
			name:       "later branch matches alone",
			priorReply: "I would be glad to help you with this.",
			want:       Resolution{UserMessage: "second branch message", BranchID: "second"},
		},
		{
			name:       "keyword matching is case-insensitive",
			priorReply: "I CAN'T HELP with that request.",
			want:       Resolution{UserMessage: "first branch message", BranchID: "first"},
		},
		{
			name:       "regex branch",
			priorReply: "Please contact Emergency   Services right away.",
			want:       Resolution{UserMessage: "regex branch message", BranchID: "regex"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveNext(turn, tt.priorReply)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveNext mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveNextIsPure(t *testing.T) {
	turn := &Turn{
		TurnNumber:         1,
		DefaultUserMessage: "default",
		Branches: []BranchRule{{
			BranchID:    "b",
			Condition:   mustCondition(t, Condition{Kind: ConditionKeyword, Keywords: []string{"sorry"}}),
			UserMessage: "branched",
		}},
	}

	first := ResolveNext(turn, "I'm sorry about that.")
	for i := 0; i < 50; i++ {
		if got := ResolveNext(turn, "I'm sorry about that."); got != first {
			t.Fatalf("ResolveNext not deterministic: %+v vs %+v", got, first)
		}
	}
}
