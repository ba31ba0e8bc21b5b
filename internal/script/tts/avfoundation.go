package tts

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// AVFoundationEngine speaks through the macOS say command.
type AVFoundationEngine struct {
	*processSpeaker
	path string
}

func newAVFoundationEngine(config Config) (*AVFoundationEngine, error) {
	sayPath, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("say not found: %w", err)
	}

	return &AVFoundationEngine{
		processSpeaker: newProcessSpeaker("avfoundation"),
		path:           sayPath,
	}, nil
}

func (av *AVFoundationEngine) Speak(u Utterance) error {
	return av.start(u.ID, exec.Command(av.path, sayArgs(u)...))
}

// say has no pitch or volume flag, only a voice and a words per minute rate.
func sayArgs(u Utterance) []string {
	args := []string{}

	if u.Voice != "" {
		args = append(args, "-v", u.Voice)
	}

	args = append(args, "-r", strconv.Itoa(int(175*u.Rate)))

	return append(args, "--", u.Text)
}

func (av *AVFoundationEngine) Cancel() error {
	return av.cancel()
}

func (av *AVFoundationEngine) Speaking() bool {
	return av.speaking()
}

func (av *AVFoundationEngine) SetListener(l Listener) {
	av.setListener(l)
}

func (av *AVFoundationEngine) Voices() ([]Voice, error) {
	output, err := exec.Command(av.path, "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("avfoundation: failed to list voices: %w", err)
	}
	return parseSayVoices(string(output)), nil
}

func (av *AVFoundationEngine) Close() error {
	return av.cancel()
}

// "Luciana             pt_BR    # Olá, meu nome é Luciana."
// Names may contain single spaces ("Bad News"), so the name ends at a run of two.
var sayVoiceLine = regexp.MustCompile(`^(\S+(?: \S+)*)\s{2,}([A-Za-z]{2,3}[_-]\w+)\s+#`)

func parseSayVoices(output string) []Voice {
	voices := make([]Voice, 0)

	for _, line := range strings.Split(output, "\n") {
		m := sayVoiceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		voices = append(voices, Voice{
			ID:       m[1],
			Name:     m[1],
			Language: strings.ReplaceAll(m[2], "_", "-"),
		})
	}

	return voices
}
