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

// Package scoring drives the evaluation of one scripted scenario against
// one system under test: resolving each turn's user message, collecting
// the system's reply, judging every rubric item, and folding the answers
// into gates, dimension scores, and a final verdict.
package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"google.golang.org/convobench/judge"
	"google.golang.org/convobench/scenario"
)

// State tracks orchestrator progress through a run.
type State string

const (
	StateNotStarted     State = "not_started"
	StateInProgress     State = "in_progress"
	StateGatesEvaluated State = "gates_evaluated"
	StateComplete       State = "complete"
	StateErrored        State = "errored"
)

// Target is the system-under-test adapter. The orchestrator is agnostic
// to whether one model or a multi-agent system answers.
type Target interface {
	Send(ctx context.Context, history []judge.Exchange, message string) (string, error)
}

const (
	defaultJudgeParallelism  = 4
	defaultTargetTimeout     = 60 * time.Second
	defaultTargetMaxAttempts = 3
	defaultTargetBackoff     = 500 * time.Millisecond
)

// Config is used to create an [Orchestrator].
type Config struct {
	Judge  *judge.Client
	Target Target

	// GateThresholds maps each gate dimension to its minimum aggregate
	// score. Dimensions absent from the map are not gates.
	GateThresholds map[scenario.Dimension]float64

	// JudgeParallelism bounds concurrent rubric evaluations within a
	// turn; size it to the judgment API's rate limit.
	JudgeParallelism int

	// Target call handling.
	TargetTimeout     time.Duration
	TargetMaxAttempts int
	TargetBackoffBase time.Duration

	// Tracer overrides the default tracer, mainly for tests.
	Tracer trace.Tracer
}

// Orchestrator evaluates one scenario against one system under test.
// Each (scenario, system) pair owns its own orchestrator; only the judge
// client's cache is shared across runs. An orchestrator is single-use.
type Orchestrator struct {
	cfg    Config
	tracer trace.Tracer

	mu    sync.Mutex
	state State
	turn  int
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge client is required")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("target adapter is required")
	}
	if cfg.JudgeParallelism <= 0 {
		cfg.JudgeParallelism = defaultJudgeParallelism
	}
	if cfg.TargetTimeout <= 0 {
		cfg.TargetTimeout = defaultTargetTimeout
	}
	if cfg.TargetMaxAttempts <= 0 {
		cfg.TargetMaxAttempts = defaultTargetMaxAttempts
	}
	if cfg.TargetBackoffBase <= 0 {
		cfg.TargetBackoffBase = defaultTargetBackoff
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("google.golang.org/convobench/scoring")
	}
	return &Orchestrator{cfg: cfg, tracer: tracer, state: StateNotStarted}, nil
}

// State returns the current orchestrator state and, while in progress,
// the 1-based turn being evaluated.
func (o *Orchestrator) State() (State, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.turn
}

func (o *Orchestrator) setState(s State, turn int) {
	o.mu.Lock()
	o.state = s
	o.turn = turn
	o.mu.Unlock()
}

// Run evaluates the scenario turn by turn and returns the verdict.
//
// Turns are strictly sequential because branch resolution depends on the
// prior reply; rubric items within a turn are judged with bounded
// fan-out. An autofail item answering yes dooms the run immediately, but
// evaluation continues through the remaining turns so the evidence trail
// stays complete. Cancellation is honored at turn boundaries only;
// aborting mid-turn would leave the conversation with the system under
// test in an ambiguous state.
//
// Partial failures never abort the run: items or turns that exhaust
// their retries are marked errored, excluded from aggregation, and
// listed on the verdict.
func (o *Orchestrator) Run(ctx context.Context, sc *scenario.Scenario) (*Verdict, error) {
	o.mu.Lock()
	if o.state != StateNotStarted {
		o.mu.Unlock()
		return nil, fmt.Errorf("orchestrator already used (state %s)", o.state)
	}
	o.state = StateInProgress
	o.turn = 1
	o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "scoring.Run",
		trace.WithAttributes(attribute.String("scenario.id", sc.ID)))
	defer span.End()

	v := &Verdict{ScenarioID: sc.ID}

	var (
		history    []judge.Exchange
		results    []RubricResult
		priorReply string
	)

	for i := range sc.Turns {
		if err := ctx.Err(); err != nil {
			o.setState(StateErrored, sc.Turns[i].TurnNumber)
			return nil, fmt.Errorf("run cancelled before turn %d: %w", sc.Turns[i].TurnNumber, err)
		}
		t := &sc.Turns[i]
		o.setState(StateInProgress, t.TurnNumber)

		turnResults, rec := o.runTurn(ctx, t, history, priorReply, v)
		results = append(results, turnResults...)
		v.Transcript = append(v.Transcript, rec)

		history = append(history, judge.Exchange{UserMessage: rec.UserMessage, Reply: rec.Reply})
		priorReply = rec.Reply
	}

	o.setState(StateGatesEvaluated, 0)

	v.Quality = aggregateDimensions(results)
	v.Gates = evaluateGates(o.cfg.GateThresholds, v.Quality)

	allPassed := true
	for _, g := range v.Gates {
		if !g.Passed {
			allPassed = false
			break
		}
	}
	if allPassed && !v.HardFail {
		v.OverallScore = overallScore(sc.DimensionWeights, v.Quality)
	}

	o.setState(StateComplete, 0)
	return v, nil
}

// runTurn executes one scripted turn: branch resolution, the target
// exchange, and the judging of every rubric and autofail item. A target
// failure errors the whole turn; judge failures error single items.
func (o *Orchestrator) runTurn(ctx context.Context, t *scenario.Turn, history []judge.Exchange, priorReply string, v *Verdict) ([]RubricResult, TurnRecord) {
	ctx, span := o.tracer.Start(ctx, "scoring.turn",
		trace.WithAttributes(attribute.Int("turn.number", t.TurnNumber)))
	defer span.End()

	res := scenario.ResolveNext(t, priorReply)
	rec := TurnRecord{
		TurnNumber:  t.TurnNumber,
		BranchID:    res.BranchID,
		UserMessage: res.UserMessage,
		Status:      ItemOK,
	}

	items := make([]scenario.RubricItem, 0, len(t.Rubric)+len(t.AutofailRubric))
	items = append(items, t.Rubric...)
	items = append(items, t.AutofailRubric...)

	reply, err := o.sendWithRetry(ctx, history, res.UserMessage)
	if err != nil {
		log.Warn().Err(err).Int("turn", t.TurnNumber).Msg("target exchange failed")
		rec.Status = ItemError
		rec.Error = err.Error()
		v.Errors = append(v.Errors, fmt.Sprintf("turn %d: target exchange failed: %v", t.TurnNumber, err))

		errored := make([]RubricResult, len(items))
		for i, item := range items {
			errored[i] = newRubricResult(item, t.TurnNumber)
			errored[i].Status = ItemError
			errored[i].Error = "turn errored before evaluation"
		}
		return errored, rec
	}
	rec.Reply = reply

	window := []judge.Exchange{{UserMessage: res.UserMessage, Reply: reply}}
	fullWindow := append(append([]judge.Exchange(nil), history...), window[0])

	turnResults := make([]RubricResult, len(items))
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(o.cfg.JudgeParallelism)
	for i, item := range items {
		g.Go(func() error {
			w := window
			if item.Dimension.CrossTurn() {
				w = fullWindow
			}
			turnResults[i] = o.judgeItem(gctx, item, t.TurnNumber, w)
			return nil
		})
	}
	// Goroutines never return errors; item failures are recorded in
	// place so one bad item cannot cancel its siblings.
	_ = g.Wait()

	o.recordTurnOutcome(t.TurnNumber, turnResults, v)
	return turnResults, rec
}

// judgeItem evaluates a single rubric item at temperature zero.
func (o *Orchestrator) judgeItem(ctx context.Context, item scenario.RubricItem, turnNumber int, window []judge.Exchange) RubricResult {
	ctx, span := o.tracer.Start(ctx, "scoring.judge",
		trace.WithAttributes(attribute.String("rubric.id", item.ID)))
	defer span.End()

	r := newRubricResult(item, turnNumber)
	answer, err := o.cfg.Judge.Evaluate(ctx, item.Question, window, 0)
	if err != nil {
		r.Status = ItemError
		r.Error = err.Error()
		return r
	}
	answer.RubricID = item.ID
	r.Status = ItemOK
	r.Answer = &answer
	return r
}

// recordTurnOutcome applies autofail semantics and surfaces
// contradictions for one turn's results.
func (o *Orchestrator) recordTurnOutcome(turnNumber int, turnResults []RubricResult, v *Verdict) {
	for _, r := range turnResults {
		if r.Status == ItemError {
			v.Errors = append(v.Errors, fmt.Sprintf("turn %d item %s: %s", turnNumber, r.RubricID, r.Error))
			continue
		}
		if r.Autofail && r.Answer.Answer && !v.HardFail {
			v.HardFail = true
			v.HardFailReason = string(r.Dimension)
		}
	}

	// An autofail hit alongside a passing quality answer on the same
	// dimension is a disagreement worth reporting. The autofail wins.
	for _, af := range turnResults {
		if !af.Autofail || af.Status != ItemOK || !af.Answer.Answer {
			continue
		}
		for _, q := range turnResults {
			if q.Autofail || q.Status != ItemOK || q.Dimension != af.Dimension || !q.Answer.Answer {
				continue
			}
			v.Contradictions = append(v.Contradictions, fmt.Sprintf(
				"turn %d: autofail %s and quality item %s disagree on dimension %s; autofail takes precedence",
				turnNumber, af.RubricID, q.RubricID, af.Dimension))
		}
	}
}

// sendWithRetry calls the target with per-call timeout and bounded
// exponential backoff on failure.
func (o *Orchestrator) sendWithRetry(ctx context.Context, history []judge.Exchange, message string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < o.cfg.TargetMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := o.cfg.TargetBackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.cfg.TargetTimeout)
		reply, err := o.cfg.Target.Send(callCtx, history, message)
		cancel()
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("target call failed after %d attempts: %w", o.cfg.TargetMaxAttempts, lastErr)
}

func newRubricResult(item scenario.RubricItem, turnNumber int) RubricResult {
	return RubricResult{
		RubricID:   item.ID,
		TurnNumber: turnNumber,
		Question:   item.Question,
		Dimension:  item.Dimension,
		Weight:     item.Weight,
		Autofail:   item.TriggersHardFail,
	}
}
