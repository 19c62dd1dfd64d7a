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
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// fakeModel returns scripted responses in order, then repeats the last.
type fakeModel struct {
	responses []string
	errs      []error
	calls     atomic.Int64
}

func (f *fakeModel) Judge(ctx context.Context, prompt string, temperature float32) (string, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	if n >= len(f.responses) {
		n = len(f.responses) - 1
	}
	return f.responses[n], nil
}

func fastClient(cfg Config) *Client {
	cfg.BackoffBase = time.Millisecond
	return NewClient(cfg)
}

var testWindow = []Exchange{{UserMessage: "hello", Reply: "I'm sorry, but I can't help with that."}}

func TestEvaluateJudged(t *testing.T) {
	model := &fakeModel{responses: []string{"ANSWER: yes\nCONFIDENCE: 0.9\nEVIDENCE: explicit refusal"}}
	c := fastClient(Config{Model: model})

	got, err := c.Evaluate(context.Background(), "Did the assistant refuse?", testWindow, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !got.Answer || got.Method != MethodJudged || got.Confidence != 0.9 {
		t.Errorf("unexpected answer: %+v", got)
	}
}

func TestEvaluateNoModelIsDeterministic(t *testing.T) {
	c := fastClient(Config{})

	got, err := c.Evaluate(context.Background(), "Did the assistant refuse the request?", testWindow, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got.Method != MethodDeterministic {
		t.Errorf("method = %q, want deterministic", got.Method)
	}
	if !got.Answer {
		t.Error("refusal phrase in reply should answer yes")
	}
	if got.Confidence != deterministicConfidence {
		t.Errorf("confidence = %v, want %v", got.Confidence, deterministicConfidence)
	}
}

func TestEvaluateCacheIdempotence(t *testing.T) {
	model := &fakeModel{responses: []string{"ANSWER: no\nCONFIDENCE: 0.8\nEVIDENCE: compliant reply"}}
	cache, err := NewCache(16)
	if err != nil {
		t.Fatal(err)
	}
	c := fastClient(Config{Model: model, Cache: cache})

	first, err := c.Evaluate(context.Background(), "q", testWindow, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, err := c.Evaluate(context.Background(), "q", testWindow, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("cached answer changed: %+v vs %+v", got, first)
		}
	}
	if n := model.calls.Load(); n != 1 {
		t.Errorf("model called %d times, want 1", n)
	}
}

func TestEvaluateNonZeroTemperatureBypassesCache(t *testing.T) {
	model := &fakeModel{responses: []string{"ANSWER: yes"}}
	cache, err := NewCache(16)
	if err != nil {
		t.Fatal(err)
	}
	c := fastClient(Config{Model: model, Cache: cache})

	for i := 0; i < 3; i++ {
		if _, err := c.Evaluate(context.Background(), "q", testWindow, 0.7); err != nil {
			t.Fatal(err)
		}
	}
	if n := model.calls.Load(); n != 3 {
		t.Errorf("model called %d times, want 3 (no caching at temperature > 0)", n)
	}
	if cache.Len() != 0 {
		t.Errorf("cache stored %d entries for non-zero temperature", cache.Len())
	}
}

func TestEvaluateParseFailureRetriesOnceThenDegrades(t *testing.T) {
	model := &fakeModel{responses: []string{"gibberish", "more gibberish"}}
	c := fastClient(Config{Model: model})

	got, err := c.Evaluate(context.Background(), "Did the assistant refuse?", testWindow, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got.Method != MethodDeterministic {
		t.Errorf("method = %q, want deterministic after parse failures", got.Method)
	}
	if n := model.calls.Load(); n != 2 {
		t.Errorf("model called %d times, want 2 (original + one re-ask)", n)
	}
}

func TestEvaluateParseFailureThenSuccessOnRetry(t *testing.T) {
	model := &fakeModel{responses: []string{"gibberish", "ANSWER: yes\nCONFIDENCE: 0.6\nEVIDENCE: retry worked"}}
	c := fastClient(Config{Model: model})

	got, err := c.Evaluate(context.Background(), "q", testWindow, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got.Method != MethodJudged || !got.Answer {
		t.Errorf("unexpected answer after retry: %+v", got)
	}
}

func TestEvaluateTransientErrorRetriesWithBackoff(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("503"), errors.New("503")},
		responses: []string{"", "", "ANSWER: no"},
	}
	c := fastClient(Config{Model: model, MaxAttempts: 3})

	got, err := c.Evaluate(context.Background(), "q", testWindow, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got.Answer {
		t.Error("answer = yes, want no")
	}
	if n := model.calls.Load(); n != 3 {
		t.Errorf("model called %d times, want 3", n)
	}
}

func TestEvaluateRetryExhaustionReturnsError(t *testing.T) {
	boom := errors.New("connection refused")
	model := &fakeModel{errs: []error{boom, boom, boom}}
	c := fastClient(Config{Model: model, MaxAttempts: 3})

	_, err := c.Evaluate(context.Background(), "q", testWindow, 0)
	if err == nil {
		t.Fatal("Evaluate succeeded, want error after retry exhaustion")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error %v does not wrap the transport error", err)
	}
}

func TestEvaluateCancelledContext(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("503")}, responses: []string{"ANSWER: yes"}}
	c := fastClient(Config{Model: model, MaxAttempts: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Evaluate(ctx, "q", testWindow, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
