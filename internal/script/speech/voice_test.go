package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scriptdeck/internal/script/tts"
)

var testVoices = []tts.Voice{
	{ID: "samantha", Name: "Samantha", Language: "en-US"},
	{ID: "joana", Name: "Joana", Language: "pt_PT"},
	{ID: "luciana", Name: "Luciana", Language: "pt-BR"},
	{ID: "amelie", Name: "Amélie", Language: "fr-CA"},
}

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name      string
		voices    []tts.Voice
		preferred string
		language  string
		want      string
	}{
		{"preferred voice is listed", testVoices, "samantha", "pt-BR", "samantha"},
		{"preferred voice missing falls back to language", testVoices, "gone", "pt-BR", "joana"},
		{"no preference uses language", testVoices, "", "fr-FR", "amelie"},
		{"no language match uses engine default", testVoices, "", "de-DE", ""},
		{"no voices", nil, "samantha", "pt-BR", ""},
		{"no language", testVoices, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectVoice(tt.voices, tt.preferred, tt.language))
		})
	}
}

func TestPrimaryTag(t *testing.T) {
	assert.Equal(t, "pt", primaryTag("pt-BR"))
	assert.Equal(t, "pt", primaryTag("PT_br"))
	assert.Equal(t, "en", primaryTag("en"))
	assert.Equal(t, "", primaryTag(""))
}

func TestSortVoices(t *testing.T) {
	sorted := SortVoices(testVoices, "pt-BR")

	ids := make([]string, len(sorted))
	for i, v := range sorted {
		ids[i] = v.ID
	}
	assert.Equal(t, []string{"luciana", "joana", "amelie", "samantha"}, ids)
	assert.Equal(t, "samantha", testVoices[0].ID, "input must not be reordered")
}

func TestRuneOffsets(t *testing.T) {
	text := "Ação rápida. Olá mundo. Fim."
	s := newSession(text, text, 200)

	assert.Equal(t, []string{"Ação rápida.", "Olá mundo.", "Fim."}, s.chunks)
	assert.Equal(t, []int{0, 13, 24}, s.offsets)
	assert.Equal(t, []int{0, 1, 2}, s.queue)
	assert.Equal(t, -1, s.last)
}

func TestSession_QueueOps(t *testing.T) {
	s := newSession("Um. Dois.", "Um. Dois.", 200)

	assert.Equal(t, 0, s.pop())
	s.pushFront(0)
	assert.Equal(t, 0, s.pop())
	assert.Equal(t, 1, s.pop())
	assert.Equal(t, -1, s.pop())
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Less(t, p.SettleDelay, p.RetryDelay)
	assert.NotZero(t, p.SettleDelay)
}
