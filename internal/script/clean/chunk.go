package clean

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultChunkLimit is the longest chunk, in runes, handed to an engine.
	DefaultChunkLimit = 200

	// splitMargin keeps hard-split windows comfortably below the limit.
	splitMargin = 20

	minChunkLimit = 2 * splitMargin
)

// Chunk cuts clean text into speakable pieces of at most limit runes, keeping whole
// sentences together where possible. Sentences at or above the limit are split on
// whitespace. The result is in document order.
func Chunk(clean string, limit int) []string {
	if limit < minChunkLimit {
		limit = minChunkLimit
	}

	var chunks []string
	for _, sentence := range Sentences(clean) {
		if utf8.RuneCountInString(sentence) < limit {
			chunks = append(chunks, sentence)
			continue
		}
		chunks = append(chunks, hardSplit(sentence, limit-splitMargin)...)
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if utf8.RuneCountInString(c) >= MinSpeakable {
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		if trimmed := strings.TrimSpace(clean); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	return kept
}

// Sentences splits text after every '.', '?' or '!' that is followed by whitespace.
// The terminator stays with its sentence; empty pieces are dropped.
func Sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0

	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
	}

	for i := 0; i < len(runes)-1; i++ {
		if !isTerminator(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		emit(i + 1)
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		emit(len(runes))
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// hardSplit takes windows of up to size runes, each ending just before a whitespace
// rune or at the end of the text. A window with no whitespace to end on is cut at size.
func hardSplit(sentence string, size int) []string {
	var out []string
	rest := []rune(sentence)

	for len(rest) > 0 {
		if len(rest) <= size {
			if s := strings.TrimSpace(string(rest)); s != "" {
				out = append(out, s)
			}
			break
		}

		cut := size
		for k := size; k >= 1; k-- {
			if unicode.IsSpace(rest[k]) {
				cut = k
				break
			}
		}

		if s := strings.TrimSpace(string(rest[:cut])); s != "" {
			out = append(out, s)
		}
		rest = rest[cut:]
		for len(rest) > 0 && unicode.IsSpace(rest[0]) {
			rest = rest[1:]
		}
	}
	return out
}
