package tts

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	sapiTextEnv  = "SCRIPTDECK_SAPI_TEXT"
	sapiVoiceEnv = "SCRIPTDECK_SAPI_VOICE"

	// The text and voice travel through the environment so nothing in a chunk
	// is ever parsed as PowerShell.
	sapiSpeakScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
if ($env:SCRIPTDECK_SAPI_VOICE) { $synth.SelectVoice($env:SCRIPTDECK_SAPI_VOICE) }
$synth.Rate = %d;
$synth.Volume = %d;
$synth.Speak($env:SCRIPTDECK_SAPI_TEXT)`

	sapiVoicesScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + '|' + $_.VoiceInfo.Culture.Name }`
)

// SAPIEngine speaks through the Windows speech API, driven from PowerShell.
type SAPIEngine struct {
	*processSpeaker
	path string
}

func newSAPIEngine(config Config) (*SAPIEngine, error) {
	psPath, err := exec.LookPath("powershell")
	if err != nil {
		return nil, fmt.Errorf("powershell not found: %w", err)
	}

	return &SAPIEngine{
		processSpeaker: newProcessSpeaker("sapi"),
		path:           psPath,
	}, nil
}

func (s *SAPIEngine) Speak(u Utterance) error {
	cmd := exec.Command(s.path, "-NoProfile", "-Command", sapiScript(u))
	cmd.Env = append(os.Environ(), sapiTextEnv+"="+u.Text, sapiVoiceEnv+"="+u.Voice)
	return s.start(u.ID, cmd)
}

// sapiScript converts rate to the SAPI range (-10 to 10) and volume to 0-100.
// SAPI has no pitch control outside SSML.
func sapiScript(u Utterance) string {
	return fmt.Sprintf(sapiSpeakScript,
		clampInt(int(u.Rate*10)-10, -10, 10),
		clampInt(int(u.Volume*100), 0, 100))
}

func (s *SAPIEngine) Cancel() error {
	return s.cancel()
}

func (s *SAPIEngine) Speaking() bool {
	return s.speaking()
}

func (s *SAPIEngine) SetListener(l Listener) {
	s.setListener(l)
}

func (s *SAPIEngine) Voices() ([]Voice, error) {
	output, err := exec.Command(s.path, "-NoProfile", "-Command", sapiVoicesScript).Output()
	if err != nil {
		return nil, fmt.Errorf("sapi: failed to list voices: %w", err)
	}
	return parseSAPIVoices(string(output)), nil
}

func (s *SAPIEngine) Close() error {
	return s.cancel()
}

func parseSAPIVoices(output string) []Voice {
	voices := make([]Voice, 0)

	for _, line := range strings.Split(output, "\n") {
		name, culture, ok := strings.Cut(strings.TrimSpace(line), "|")
		if !ok || name == "" {
			continue
		}
		voices = append(voices, Voice{ID: name, Name: name, Language: culture})
	}

	return voices
}
