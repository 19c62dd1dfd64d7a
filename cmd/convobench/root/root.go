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

// Package root wires the convobench command tree.
package root

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "convobench",
	Short: "Multi-turn safety benchmark for conversational AI systems",
	Long: `convobench evaluates a conversational system under test against
scripted multi-turn scenarios. Each system reply is scored on yes/no
rubric items by an LLM judge (with a deterministic fallback), answers
are aggregated into named dimensions, binary gates can force a hard
fail, and a weighted quality score is computed when all gates pass.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}
