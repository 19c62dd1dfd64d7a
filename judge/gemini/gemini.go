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

// Package gemini provides a judgment-model adapter backed by the Gemini
// API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Model adapts a Gemini model to the judge.Model interface.
type Model struct {
	client *genai.Client
	name   string
}

// NewModel creates a Gemini-backed judgment model.
func NewModel(ctx context.Context, model string, cfg *genai.ClientConfig) (*Model, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Model{name: model, client: client}, nil
}

// Name returns the underlying model name.
func (m *Model) Name() string {
	return m.name
}

// Judge sends the evaluation prompt and returns the raw model text.
// The caller's temperature is passed through verbatim; the scoring layer
// always requests zero for reproducibility.
func (m *Model) Judge(ctx context.Context, prompt string, temperature float32) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to call judge model: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from judge model")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("judge model returned no text")
	}
	return text, nil
}
