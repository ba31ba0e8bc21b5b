// Package clean turns generated script text into something a speech engine can read
// and cuts it into chunks small enough to be spoken one at a time.
package clean

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinSpeakable is the shortest clean text (in runes) worth sending to an engine.
const MinSpeakable = 2

// Patterns applied by Sanitize, in order.
var (
	metaPattern      = regexp.MustCompile(`\[[\s\S]*?\]`)
	parensPattern    = regexp.MustCompile(`\([\s\S]*?\)`)
	timestampPattern = regexp.MustCompile(`\d{1,2}:\d{2}(?:-\d{1,2}:\d{2})?`)
	labelPattern     = regexp.MustCompile(`(?i)(?:NARRATOR|VOICE OVER|VO|SCRIPT|Text Overlay|B-ROLL|SOUND):`)
	symbolPattern    = regexp.MustCompile(`[^a-zA-Z0-9\x{00C0}-\x{00FF}\s.,?!:;]`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

const separator = "---"

// Sanitize strips stage directions, timestamps, speaker labels, separators and any
// character outside the speakable allow-list, then normalises whitespace.
//
// The pipeline is re-run until the text stops changing: removing one label can splice
// its neighbours into a new one ("VVO:O:"), and that must not survive a single call.
func Sanitize(raw string) string {
	text := pass(raw)
	for {
		next := pass(text)
		if next == text {
			return text
		}
		text = next
	}
}

func pass(text string) string {
	text = metaPattern.ReplaceAllString(text, "")
	text = parensPattern.ReplaceAllString(text, "")
	text = timestampPattern.ReplaceAllString(text, "")
	text = labelPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, separator, "")

	text = symbolPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// Speakable reports whether clean text is long enough to be read aloud.
func Speakable(clean string) bool {
	return utf8.RuneCountInString(clean) >= MinSpeakable
}
