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

// Resolution is the outcome of branch resolution for one turn.
// An empty BranchID means the turn's default message was used.
type Resolution struct {
	UserMessage string
	BranchID    string
}

// ResolveNext chooses the user message to send for a turn, given the
// system-under-test's reply to the previous turn. Branches are evaluated
// in declared order and the first matching condition wins; authors control
// precedence by ordering. With no match, or no prior reply on the first
// turn, the default message is used.
//
// ResolveNext is a pure function of its arguments, which makes exact
// replay from a recorded transcript possible.
func ResolveNext(t *Turn, priorReply string) Resolution {
	if priorReply != "" {
		for i := range t.Branches {
			if t.Branches[i].Condition.Matches(priorReply) {
				return Resolution{
					UserMessage: t.Branches[i].UserMessage,
					BranchID:    t.Branches[i].BranchID,
				}
			}
		}
	}
	return Resolution{UserMessage: t.DefaultUserMessage}
}
