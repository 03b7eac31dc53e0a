// Package llm provides optional LLM-backed classification suggestions using
// langchaingo. When no provider is configured the pipeline runs without it.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/jmulder/clearcat/internal/config"
	"github.com/jmulder/clearcat/internal/metrics"
	"github.com/jmulder/clearcat/internal/models"
)

// Classifier suggests a copyright classification for a teaching material from
// its extracted text. Suggestions are advisory; they never overwrite a
// classification a reviewer has set.
type Classifier struct {
	llm       llms.Model
	modelName string
	mc        *metrics.Collector
}

// NewClassifier creates a classifier based on configuration. Returns nil
// (no error) when no LLM provider is configured.
func NewClassifier(cfg config.Config, mc *metrics.Collector) (*Classifier, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderNone:
		return nil, nil

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Classifier{
		llm:       model,
		modelName: cfg.LLMModel,
		mc:        mc,
	}, nil
}

// Model returns the LLM model name.
func (c *Classifier) Model() string {
	return c.modelName
}

const classifySystemPrompt = `You review teaching materials for copyright compliance at a university.
Given the text of a teaching material, classify it as exactly one of:
- own_work: written by the lecturer or institution itself
- open_license: published under an open license (CC, public domain)
- easy_access: commercially published material covered by the Easy Access agreement
- cited: a short excerpt with proper citation
- unknown: cannot be determined from the text

Answer with ONLY the classification label, nothing else.`

// maxClassifyChars bounds how much document text goes into the prompt.
const maxClassifyChars = 8000

// Suggest proposes a classification for the given document text.
func (c *Classifier) Suggest(ctx context.Context, title, text string) (models.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return models.ClassificationUnknown, nil
	}
	if len(text) > maxClassifyChars {
		text = text[:maxClassifyChars]
	}

	userPrompt := fmt.Sprintf("Title: %s\n\nText:\n%s\n\nClassification:", title, text)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, classifySystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", wrapFatalError(fmt.Errorf("generate classification: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	choice := response.Choices[0]
	if c.mc != nil {
		var in, out int64
		if choice.GenerationInfo != nil {
			in = toInt64(choice.GenerationInfo["PromptTokens"])
			out = toInt64(choice.GenerationInfo["CompletionTokens"])
		}
		c.mc.RecordLLMUsage(metrics.OpLLMGenerate, time.Since(start), in, out)
	}

	return parseSuggestion(choice.Content)
}

// parseSuggestion maps a model answer onto a known classification. Models
// sometimes wrap the label in punctuation or a sentence; take the first known
// label that appears.
func parseSuggestion(answer string) (models.Classification, error) {
	answer = strings.ToLower(answer)
	for _, c := range []models.Classification{
		models.ClassificationOwnWork,
		models.ClassificationOpenLicense,
		models.ClassificationEasyAccess,
		models.ClassificationCited,
		models.ClassificationUnknown,
	} {
		if strings.Contains(answer, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unrecognized classification answer: %q", answer)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
