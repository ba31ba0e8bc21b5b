package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

// speakerRate is the rate the speaker is opened at; clips in any other rate are resampled.
const speakerRate = beep.SampleRate(44100)

var speakerOnce sync.Once
var speakerErr error

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// GoogleClassicTTSEngine synthesizes each utterance to MP3 with Cloud Text-to-Speech,
// caches the file on disk and plays it through the beep speaker.
type GoogleClassicTTSEngine struct {
	client   *texttospeech.Client
	ctx      context.Context
	stop     context.CancelFunc
	language string
	cacheDir string

	mu       sync.Mutex
	listener Listener
	current  uint64
	speaking bool
	abort    context.CancelFunc
	streamer beep.StreamSeekCloser
	voices   []Voice
}

func newGoogleClassicTTSEngine(config Config) (*GoogleClassicTTSEngine, error) {
	ctx, stop := context.WithCancel(context.Background())
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		stop()
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if err := os.MkdirAll(config.CachePath, 0755); err != nil {
		stop()
		client.Close()
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	g := &GoogleClassicTTSEngine{
		client:   client,
		ctx:      ctx,
		stop:     stop,
		language: config.Language,
		cacheDir: config.CachePath,
		listener: nopListener{},
	}

	// Voices arrive later, the way a browser fills its voice list.
	go g.loadVoices()

	return g, nil
}

func (g *GoogleClassicTTSEngine) SetListener(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if l == nil {
		l = nopListener{}
	}
	g.listener = l
}

func (g *GoogleClassicTTSEngine) Speak(u Utterance) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.speaking {
		return fmt.Errorf("googleclassic: %w", ErrBusy)
	}

	ctx, abort := context.WithCancel(g.ctx)
	g.current = u.ID
	g.speaking = true
	g.abort = abort

	go g.play(ctx, u)
	return nil
}

func (g *GoogleClassicTTSEngine) play(ctx context.Context, u Utterance) {
	g.mu.Lock()
	listener := g.listener
	g.mu.Unlock()
	listener.OnStart(u.ID)

	path, err := g.synthesize(ctx, u)
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Warn("Google TTS synthesis failed")
		}
		g.finish(u.ID, ReasonSynthesisFailed)
		return
	}

	if err := g.startPlayback(u.ID, path); err != nil {
		logrus.WithError(err).WithField("file", path).Warn("Could not play synthesized audio")
		g.finish(u.ID, ReasonAudioBusy)
	}
}

// synthesize returns the cached MP3 for the utterance, calling the API on a miss.
func (g *GoogleClassicTTSEngine) synthesize(ctx context.Context, u Utterance) (string, error) {
	path := filepath.Join(g.cacheDir, cacheKey(u)+".mp3")
	if _, err := os.Stat(path); err == nil {
		logrus.WithField("file", path).Debug("Using cached audio")
		return path, nil
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: u.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: u.Language,
			Name:         u.Voice,
		},
		AudioConfig: audioConfig(u),
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize utterance %d: %w", u.ID, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, resp.AudioContent, 0644); err != nil {
		return "", fmt.Errorf("failed to write MP3 to %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move MP3 into cache: %w", err)
	}

	logrus.WithField("file", path).Debug("Cached audio")
	return path, nil
}

// audioConfig maps rate straight to speakingRate and pitch 1.0 to 0 semitones,
// with each step of 0.05 worth one semitone. Chirp voices reject both.
func audioConfig(u Utterance) *texttospeechpb.AudioConfig {
	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}

	if !strings.Contains(strings.ToLower(u.Voice), "chirp") {
		cfg.SpeakingRate = clampFloat(u.Rate, 0.25, 4.0)
		cfg.Pitch = clampFloat((u.Pitch-1)*20, -20, 20)
	}
	return cfg
}

func (g *GoogleClassicTTSEngine) startPlayback(id uint64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	var source beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		source = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	g.mu.Lock()
	if g.current != id {
		// canceled while synthesizing
		g.mu.Unlock()
		streamer.Close()
		return nil
	}
	g.streamer = streamer
	g.mu.Unlock()

	speaker.Play(beep.Seq(source, beep.Callback(func() {
		// the callback runs on the speaker goroutine with the speaker locked
		go g.finish(id, "")
	})))
	return nil
}

// finish closes out utterance id unless it was already canceled. An empty reason means
// it ended normally.
func (g *GoogleClassicTTSEngine) finish(id uint64, reason ErrorReason) {
	g.mu.Lock()
	if g.current != id {
		g.mu.Unlock()
		return
	}
	g.resetLocked()
	listener := g.listener
	g.mu.Unlock()

	if reason == "" {
		listener.OnEnd(id)
		return
	}
	listener.OnError(id, reason)
}

func (g *GoogleClassicTTSEngine) resetLocked() {
	if g.abort != nil {
		g.abort()
		g.abort = nil
	}
	if g.streamer != nil {
		g.streamer.Close()
		g.streamer = nil
	}
	g.current = 0
	g.speaking = false
}

func (g *GoogleClassicTTSEngine) Cancel() error {
	g.mu.Lock()
	if !g.speaking {
		g.mu.Unlock()
		return nil
	}

	id := g.current
	if g.streamer != nil {
		speaker.Clear()
	}
	g.resetLocked()
	listener := g.listener
	g.mu.Unlock()

	go listener.OnError(id, ReasonInterrupted)
	return nil
}

func (g *GoogleClassicTTSEngine) Speaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speaking
}

// Voices returns the voices for the configured language. The list is empty until the
// first lookup completes; OnVoicesChanged fires when it does.
func (g *GoogleClassicTTSEngine) Voices() ([]Voice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Voice, len(g.voices))
	copy(out, g.voices)
	return out, nil
}

func (g *GoogleClassicTTSEngine) loadVoices() {
	ctx, cancel := context.WithTimeout(g.ctx, 30*time.Second)
	defer cancel()

	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: g.language})
	if err != nil {
		logrus.WithError(err).Warn("Failed to list Google TTS voices")
		return
	}

	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		language := ""
		if len(v.LanguageCodes) > 0 {
			language = v.LanguageCodes[0]
		}
		voices = append(voices, Voice{ID: v.Name, Name: v.Name, Language: language})
	}

	g.mu.Lock()
	g.voices = voices
	listener := g.listener
	g.mu.Unlock()

	listener.OnVoicesChanged()
}

func (g *GoogleClassicTTSEngine) Close() error {
	err := g.Cancel()
	g.stop()
	if cerr := g.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// cacheKey names the cached clip after everything that changes how it sounds.
func cacheKey(u Utterance) string {
	return md5Sum(fmt.Sprintf("%s|%s|%s|%.2f|%.2f", u.Language, u.Voice, u.Text, u.Rate, u.Pitch))
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
