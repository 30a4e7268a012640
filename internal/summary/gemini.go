// Package summary writes a short executive summary of a report with Gemini.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/logger"
)

// ContentGenerator is the subset of the genai models API used here.
// This interface enables mocking of the model in tests.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSummarizer implements pipeline.Summarizer on top of Gemini.
type GeminiSummarizer struct {
	generator ContentGenerator
	model     string
	timeout   time.Duration
}

// NewGeminiSummarizer creates a GenAI client from the environment
// (GOOGLE_API_KEY or Vertex AI settings).
func NewGeminiSummarizer(ctx context.Context, cfg config.SummaryConfig) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiSummarizer: create genai client: %w", err)
	}
	return NewWithGenerator(client.Models, cfg), nil
}

// NewWithGenerator builds a summarizer around an existing generator.
func NewWithGenerator(g ContentGenerator, cfg config.SummaryConfig) *GeminiSummarizer {
	model := cfg.Model
	if model == "" {
		model = config.DefaultSummaryModel
	}
	return &GeminiSummarizer{generator: g, model: model, timeout: cfg.Timeout}
}

// Summarize asks the model for a short narrative of the report.
func (s *GeminiSummarizer) Summarize(ctx context.Context, report *domain.Report) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildPrompt(report)}},
		},
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("model", s.model).Msg("Requesting summary")

	resp, err := s.generator.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Summarize: generate content: %w", err)
	}

	text := cleanSummary(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Summarize: empty response from model")
	}
	return text, nil
}

// cleanSummary strips code fences the model sometimes adds.
func cleanSummary(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
