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

package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"google.golang.org/convobench/config"
	"google.golang.org/convobench/judge"
	"google.golang.org/convobench/judge/gemini"
	"google.golang.org/convobench/scenario"
	"google.golang.org/convobench/scoring"
	"google.golang.org/convobench/storage"
	"google.golang.org/convobench/target"
)

type runFlags struct {
	scenarioDir string
	configPath  string
	targetURL   string
	targetModel string
	targetName  string
	outputDir   string
	sqlitePath  string
}

var runF runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate every scenario against a system under test",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runF.scenarioDir, "scenarios", "s", "scenarios", "Directory of scenario YAML files")
	runCmd.Flags().StringVarP(&runF.configPath, "config", "c", "", "Run configuration file (defaults apply when empty)")
	runCmd.Flags().StringVarP(&runF.targetURL, "target-url", "t", "", "Base URL of the system under test (OpenAI-compatible)")
	runCmd.Flags().StringVar(&runF.targetModel, "target-model", "", "Model name sent to the system under test")
	runCmd.Flags().StringVar(&runF.targetName, "target-name", "", "Label stored with each run result")
	runCmd.Flags().StringVarP(&runF.outputDir, "output", "o", "results", "Directory for JSON run results")
	runCmd.Flags().StringVar(&runF.sqlitePath, "sqlite", "", "SQLite database path; overrides --output when set")
}

func runBenchmark(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if runF.configPath != "" {
		var err error
		cfg, err = config.Load(runF.configPath)
		if err != nil {
			return err
		}
	}

	scenarios, err := scenario.LoadDir(runF.scenarioDir)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios found in %s", runF.scenarioDir)
	}
	if runF.targetURL == "" {
		return fmt.Errorf("--target-url is required")
	}

	judgeClient, err := buildJudge(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := buildStore()
	if err != nil {
		return err
	}

	sut, err := target.NewChat(target.ChatConfig{
		BaseURL: runF.targetURL,
		Model:   runF.targetModel,
		APIKey:  os.Getenv("TARGET_API_KEY"),
		Timeout: cfg.Timeout.Std(),
	})
	if err != nil {
		return err
	}

	base := scoring.Config{
		Judge:             judgeClient,
		Target:            sut,
		GateThresholds:    cfg.GateThresholds,
		JudgeParallelism:  cfg.JudgeParallelism,
		TargetTimeout:     cfg.Timeout.Std(),
		TargetMaxAttempts: cfg.MaxAttempts,
	}

	pairs := make([]scoring.Pair, len(scenarios))
	for i, sc := range scenarios {
		pairs[i] = scoring.Pair{Scenario: sc, Target: sut, TargetName: runF.targetName}
	}

	log.Info().Int("scenarios", len(pairs)).Str("target", runF.targetURL).Msg("starting benchmark")
	results, err := scoring.RunAll(ctx, base, pairs, cfg.RunParallelism)

	for _, rr := range results {
		if rr == nil {
			continue
		}
		if saveErr := store.SaveRunResult(context.WithoutCancel(ctx), rr); saveErr != nil {
			log.Error().Err(saveErr).Str("run", rr.RunID).Msg("failed to save run result")
		}
	}
	return err
}

// buildJudge wires the judgment model, cache, and client. Without a
// configured judge model every rubric item uses the deterministic
// evaluator.
func buildJudge(ctx context.Context, cfg *config.Config) (*judge.Client, error) {
	cache, err := judge.NewCache(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}

	var model judge.Model
	if cfg.JudgeModel != "" {
		m, err := gemini.NewModel(ctx, cfg.JudgeModel, &genai.ClientConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create judge model: %w", err)
		}
		model = m
	} else {
		log.Warn().Msg("no judge model configured; using deterministic evaluation only")
	}

	return judge.NewClient(judge.Config{
		Model:       model,
		Cache:       cache,
		Timeout:     cfg.Timeout.Std(),
		MaxAttempts: cfg.MaxAttempts,
	}), nil
}

func buildStore() (storage.Store, error) {
	if runF.sqlitePath != "" {
		return storage.NewSQLiteStore(runF.sqlitePath)
	}
	return storage.NewFileStore(runF.outputDir)
}
