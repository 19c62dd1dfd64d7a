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
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultTimeout     = 30 * time.Second

	// parseRetries is how many times an unparseable model response is
	// re-asked before degrading to the deterministic evaluator.
	parseRetries = 1
)

// Config is used to create a [Client].
type Config struct {
	// Model is the judgment-model adapter. When nil, every evaluation
	// uses the deterministic pattern evaluator.
	Model Model

	// Cache holds judged answers for temperature-zero calls. Optional.
	Cache *Cache

	// Timeout bounds each individual model call.
	Timeout time.Duration

	// MaxAttempts bounds transient-failure retries per evaluation.
	MaxAttempts int

	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration
}

// Client answers rubric questions against transcript windows. It is safe
// for concurrent use; the cache it holds is the only shared state.
type Client struct {
	model       Model
	cache       *Cache
	parser      *responseParser
	timeout     time.Duration
	maxAttempts int
	backoffBase time.Duration
}

// NewClient creates a judge client. Zero config fields get defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	return &Client{
		model:       cfg.Model,
		cache:       cfg.Cache,
		parser:      newResponseParser(),
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
	}
}

// Evaluate answers one rubric question against the given transcript
// window. Temperature-zero calls are served from the cache when possible
// and stored on success; non-zero temperatures never touch the cache.
//
// An unparseable model response is re-asked once and then degraded to the
// deterministic evaluator. A transport failure is retried with
// exponential backoff up to MaxAttempts and then returned as an error so
// the caller can mark the item errored instead of failing the run.
func (c *Client) Evaluate(ctx context.Context, question string, window []Exchange, temperature float32) (Answer, error) {
	if c.model == nil {
		return evaluateDeterministic(question, window), nil
	}

	cacheable := temperature == 0
	var key string
	if cacheable {
		key = CacheKey(question, window)
		if a, ok := c.cache.Get(key); ok {
			return a, nil
		}
	}

	prompt := buildPrompt(question, window)

	raw, err := c.callModel(ctx, prompt, temperature)
	if err != nil {
		return Answer{}, err
	}

	a, parseErr := c.parser.parse(raw)
	for i := 0; parseErr != nil && i < parseRetries; i++ {
		log.Warn().Err(parseErr).Msg("judge response unparseable, re-asking")
		raw, err = c.callModel(ctx, prompt, temperature)
		if err != nil {
			return Answer{}, err
		}
		a, parseErr = c.parser.parse(raw)
	}
	if parseErr != nil {
		log.Warn().Err(parseErr).Msg("judge response unparseable, degrading to pattern evaluator")
		a = evaluateDeterministic(question, window)
	}

	if cacheable {
		c.cache.Put(key, a)
	}
	return a, nil
}

// callModel performs one judged call with per-call timeout and bounded
// exponential backoff on transport failure.
func (c *Client) callModel(ctx context.Context, prompt string, temperature float32) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := c.model.Judge(callCtx, prompt, temperature)
		cancel()
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("judge call failed after %d attempts: %w", c.maxAttempts, lastErr)
}
