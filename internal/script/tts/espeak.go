// Cross-platform eSpeak implementation
package tts

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ESpeakEngine speaks through the espeak-ng (or classic espeak) command line tool.
type ESpeakEngine struct {
	*processSpeaker
	path string
}

func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return &ESpeakEngine{
		processSpeaker: newProcessSpeaker("espeak"),
		path:           espeakPath,
	}, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) Speak(u Utterance) error {
	return e.start(u.ID, exec.Command(e.path, espeakArgs(u)...))
}

// espeakArgs maps an utterance onto espeak flags: words per minute around 175,
// pitch 0-99 around 50 and amplitude 0-200 around 100.
func espeakArgs(u Utterance) []string {
	args := []string{}

	voice := u.Voice
	if voice == "" {
		voice = u.Language
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}

	args = append(args, "-s", strconv.Itoa(int(175*u.Rate)))
	args = append(args, "-p", strconv.Itoa(clampInt(int(50*u.Pitch), 0, 99)))
	args = append(args, "-a", strconv.Itoa(clampInt(int(100*u.Volume), 0, 200)))

	// "--" stops a chunk starting with '-' from being read as a flag
	return append(args, "--", u.Text)
}

func (e *ESpeakEngine) Cancel() error {
	return e.cancel()
}

func (e *ESpeakEngine) Speaking() bool {
	return e.speaking()
}

func (e *ESpeakEngine) SetListener(l Listener) {
	e.setListener(l)
}

func (e *ESpeakEngine) Voices() ([]Voice, error) {
	output, err := exec.Command(e.path, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("espeak: failed to list voices: %w", err)
	}
	return parseESpeakVoices(string(output)), nil
}

func (e *ESpeakEngine) Close() error {
	return e.cancel()
}

func parseESpeakVoices(output string) []Voice {
	lines := strings.Split(output, "\n")
	voices := make([]Voice, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName File Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, Voice{
				ID:       fields[3],
				Name:     strings.ReplaceAll(fields[3], "_", " "),
				Language: fields[1],
			})
		}
	}

	return voices
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
