package generator

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersona(t *testing.T) {
	tests := []struct {
		in   string
		want Persona
	}{
		{"scientific", PersonaScientific},
		{" Dramatic ", PersonaDramatic},
		{"FUNNY", PersonaFunny},
		{"default", PersonaDefault},
		{"", PersonaDefault},
		{"pirate", PersonaDefault},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePersona(tt.in))
		})
	}
}

func TestPersonas(t *testing.T) {
	assert.Equal(t, []string{"default", "dramatic", "funny", "scientific"}, Personas())
}

func TestInstructions(t *testing.T) {
	for _, name := range Personas() {
		assert.NotEmpty(t, Persona(name).Instructions())
	}
	assert.Equal(t, PersonaDefault.Instructions(), Persona("pirate").Instructions())
	assert.NotEqual(t, PersonaDefault.Instructions(), PersonaFunny.Instructions())
}

func TestScriptPrompt(t *testing.T) {
	prompt := ScriptPrompt("  buracos negros ", PersonaScientific)

	assert.Contains(t, prompt, `"buracos negros"`)
	assert.Contains(t, prompt, PersonaScientific.Instructions())
	assert.Contains(t, prompt, "60 segundos")
	assert.Contains(t, prompt, "português do Brasil")
}

func TestVisualsPrompt(t *testing.T) {
	prompt := VisualsPrompt("O universo é vasto.")

	assert.Contains(t, prompt, `"O universo é vasto."`)
	assert.Contains(t, prompt, "5 prompts")
	assert.Contains(t, prompt, "inglês")
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: parts},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestExtractText(t *testing.T) {
	t.Run("joins text parts", func(t *testing.T) {
		text, err := extractText(textResponse(genai.Text("Olá "), genai.Blob{MIMEType: "image/png"}, genai.Text("mundo.\n")))
		require.NoError(t, err)
		assert.Equal(t, "Olá mundo.", text)
	})

	t.Run("nil response", func(t *testing.T) {
		_, err := extractText(nil)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := extractText(&genai.GenerateContentResponse{})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("candidate without content", func(t *testing.T) {
		_, err := extractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("only non-text parts", func(t *testing.T) {
		_, err := extractText(textResponse(genai.Blob{MIMEType: "image/png"}))
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("blocked prompt", func(t *testing.T) {
		resp := textResponse(genai.Text("ignored"))
		resp.PromptFeedback = &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}

		_, err := extractText(resp)
		assert.ErrorIs(t, err, ErrEmptyResponse)
		assert.ErrorContains(t, err, "blocked")
	})
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
