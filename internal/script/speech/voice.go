package speech

import (
	"sort"
	"strings"

	"scriptdeck/internal/script/tts"
)

// primaryTag returns the language subtag of a BCP 47 style tag: "pt" for "pt-BR" or "pt_BR".
func primaryTag(language string) string {
	tag, _, _ := strings.Cut(strings.ReplaceAll(language, "_", "-"), "-")
	return strings.ToLower(tag)
}

// selectVoice picks the voice for an utterance: the preferred id when the engine offers
// it, else the first voice sharing the language's primary subtag, else "" for the
// engine default.
func selectVoice(voices []tts.Voice, preferred, language string) string {
	if preferred != "" {
		for _, v := range voices {
			if v.ID == preferred {
				return v.ID
			}
		}
	}

	want := primaryTag(language)
	if want == "" {
		return ""
	}
	for _, v := range voices {
		if primaryTag(v.Language) == want {
			return v.ID
		}
	}
	return ""
}

// SortVoices orders voices for display: exact language matches, then voices sharing the
// primary subtag, then the rest, each group by name.
func SortVoices(voices []tts.Voice, language string) []tts.Voice {
	out := make([]tts.Voice, len(voices))
	copy(out, voices)

	rank := func(v tts.Voice) int {
		switch {
		case strings.EqualFold(strings.ReplaceAll(v.Language, "_", "-"), language):
			return 0
		case primaryTag(v.Language) == primaryTag(language):
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
