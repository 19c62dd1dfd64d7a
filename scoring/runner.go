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
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"google.golang.org/convobench/scenario"
)

// Pair is one (scenario, system under test) evaluation unit.
type Pair struct {
	Scenario   *scenario.Scenario
	Target     Target
	TargetName string
}

// RunAll evaluates every pair with up to parallelism runs in flight.
// Pairs are fully independent: each gets a fresh orchestrator built from
// base, with only the judge client (and its cache) shared. A pair whose
// run fails is recorded with its error; only context cancellation stops
// the batch.
func RunAll(ctx context.Context, base Config, pairs []Pair, parallelism int) ([]*RunResult, error) {
	if parallelism <= 0 {
		parallelism = 1
	}

	results := make([]*RunResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, p := range pairs {
		g.Go(func() error {
			rr := &RunResult{
				RunID:      uuid.NewString(),
				ScenarioID: p.Scenario.ID,
				TargetName: p.TargetName,
				StartedAt:  time.Now().UTC(),
			}
			results[i] = rr

			cfg := base
			cfg.Target = p.Target
			o, err := New(cfg)
			if err != nil {
				rr.Error = err.Error()
				rr.FinishedAt = time.Now().UTC()
				return err
			}

			v, err := o.Run(gctx, p.Scenario)
			rr.FinishedAt = time.Now().UTC()
			if err != nil {
				rr.Error = err.Error()
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("scenario", p.Scenario.ID).Msg("run failed")
				return nil
			}
			rr.Verdict = v

			log.Info().
				Str("scenario", p.Scenario.ID).
				Str("target", p.TargetName).
				Float64("overall", v.OverallScore).
				Bool("hard_fail", v.HardFail).
				Msg("run complete")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
