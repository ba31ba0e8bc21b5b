package generator

import (
	"fmt"
	"sort"
	"strings"
)

// Persona selects the tone of a generated script.
type Persona string

const (
	PersonaDefault    Persona = "default"
	PersonaDramatic   Persona = "dramatic"
	PersonaScientific Persona = "scientific"
	PersonaFunny      Persona = "funny"
)

var personaInstructions = map[Persona]string{
	PersonaDefault: "Você é um roteirista profissional de canais dark (faceless). " +
		"Seu estilo é envolvente, direto e desperta curiosidade.",
	PersonaDramatic: "Você é um roteirista de dramas intensos. " +
		"Use pausas, suspense e linguagem emotiva para criar tensão e expectativa.",
	PersonaScientific: "Você é um divulgador científico. " +
		"Explique o tema com clareza e precisão, baseado em fatos, como num documentário.",
	PersonaFunny: "Você é um comediante de stand-up. " +
		"Trate o tema com ironia, sarcasmo e piadas inesperadas, terminando com uma graça.",
}

// ParsePersona maps a name onto a persona. Unknown names fall back to the default.
func ParsePersona(name string) Persona {
	p := Persona(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := personaInstructions[p]; ok {
		return p
	}
	return PersonaDefault
}

// Personas lists every persona name, sorted.
func Personas() []string {
	names := make([]string, 0, len(personaInstructions))
	for p := range personaInstructions {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// Instructions returns the role the model is asked to play.
func (p Persona) Instructions() string {
	if s, ok := personaInstructions[p]; ok {
		return s
	}
	return personaInstructions[PersonaDefault]
}

// ScriptPrompt asks for about a minute of narration on topic, with nothing a speech
// engine should not read aloud.
func ScriptPrompt(topic string, persona Persona) string {
	return fmt.Sprintf(`Função: %s
Objetivo: escrever o roteiro de um vídeo curto (cerca de 60 segundos de fala) sobre: "%s".
Formato obrigatório:
- Somente o texto da narração, exatamente o que será falado.
- Sem timestamps (ex: 0:00).
- Sem instruções visuais ou sonoras (ex: [Som], [Corte para]).
- Sem rótulos de personagem (ex: Narrador:).
- Use a pontuação para marcar pausas dramáticas.
Idioma: português do Brasil.`, persona.Instructions(), strings.TrimSpace(topic))
}

// VisualsPrompt asks for five English image prompts illustrating script.
func VisualsPrompt(script string) string {
	return fmt.Sprintf(`Contexto: tenho este roteiro de vídeo:
"%s"

Tarefa: crie 5 prompts de imagem detalhados e artísticos para Midjourney ou DALL-E que ilustrem as cenas principais do roteiro.
Estilo: cyberpunk, cinematic, photorealistic, 8k.
Formato: apenas a lista dos 5 prompts, em inglês, sem introdução.`, strings.TrimSpace(script))
}
