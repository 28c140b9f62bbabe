// Copyright 2025 Poiesic Systems
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

package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/clausewise/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client llms.Model
	logger *slog.Logger
}

// newSummarizer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.SummaryHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.SummaryModel),
	)
	if err != nil {
		return nil, err
	}

	return newSummarizerWithModel(client), nil
}

func newSummarizerWithModel(client llms.Model) *Summarizer {
	return &Summarizer{
		client: client,
		logger: slog.Default().With("component", "openai-summarizer"),
	}
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// Summarize renders the analysis prompt for req and returns the model's answer.
func (s *Summarizer) Summarize(ctx context.Context, req ai.SummaryRequest) (string, error) {
	prompt, err := buildAnalysisPrompt(req)
	if err != nil {
		return "", err
	}

	s.logger.Debug("generating analysis", "query", req.Query, "prompt_length", len(prompt))

	answer, err := llms.GenerateFromSinglePrompt(ctx, s.client, prompt, llms.WithTemperature(0.0))
	if err != nil {
		s.logger.Error("failed to generate analysis", "err", err)
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
