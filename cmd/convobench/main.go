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

// Command convobench runs multi-turn safety benchmark scenarios against
// a conversational system under test and stores the verdicts.
package main

import (
	"os"

	"google.golang.org/convobench/cmd/convobench/root"
)

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
