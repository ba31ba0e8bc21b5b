package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiClient generates text with the Gemini API. Each call is a single attempt.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    *logrus.Entry
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		log:    logrus.WithField("component", "gemini"),
	}, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func (c *GeminiClient) Generate(ctx context.Context, topic string, persona Persona) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", ErrEmptyTopic
	}

	c.log.WithFields(logrus.Fields{
		"topic":   topic,
		"persona": persona,
	}).Debug("Generating script")

	return c.generate(ctx, ScriptPrompt(topic, persona))
}

func (c *GeminiClient) VisualPrompts(ctx context.Context, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", ErrEmptyScript
	}

	c.log.Debug("Generating visual prompts")
	return c.generate(ctx, VisualsPrompt(script))
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}

	c.log.WithField("runes", len([]rune(text))).Debug("Gemini response")
	return text, nil
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("prompt blocked (%s): %w", resp.PromptFeedback.BlockReason, ErrEmptyResponse)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("finish reason %s: %w", candidate.FinishReason, ErrEmptyResponse)
	}
	return text, nil
}
