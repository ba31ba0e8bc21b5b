// Package generator writes narration scripts and image prompts with a generative model.
package generator

import (
	"context"
	"errors"
)

var (
	ErrEmptyResponse = errors.New("model returned no text")
	ErrMissingAPIKey = errors.New("no Gemini API key configured (set GEMINI_API_KEY)")
	ErrEmptyTopic    = errors.New("topic is empty")
	ErrEmptyScript   = errors.New("script is empty")
)

// Generator produces text for the deck.
type Generator interface {
	// Generate writes a narration script about topic in the given persona.
	Generate(ctx context.Context, topic string, persona Persona) (string, error)
	// VisualPrompts writes five image prompts illustrating script.
	VisualPrompts(ctx context.Context, script string) (string, error)
	Close() error
}
