// internal/script/tts/tts.go
package tts

import "errors"

// ErrBusy is returned by Speak while an earlier utterance is still in flight.
var ErrBusy = errors.New("already speaking")

// Config selects and configures an engine.
type Config struct {
	Type      string
	Language  string
	CachePath string
}

// Utterance is one request to vocalise a single chunk of text.
type Utterance struct {
	ID       uint64
	Text     string
	Language string
	Voice    string
	Rate     float64
	Pitch    float64
	Volume   float64
}

// Voice describes a voice an engine can speak with.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// ErrorReason explains why an utterance did not finish.
type ErrorReason string

const (
	ReasonInterrupted     ErrorReason = "interrupted"
	ReasonCanceled        ErrorReason = "canceled"
	ReasonSynthesisFailed ErrorReason = "synthesis-failed"
	ReasonAudioBusy       ErrorReason = "audio-busy"
)

// Benign reports whether the reason is the echo of a cancel we asked for.
func (r ErrorReason) Benign() bool {
	return r == ReasonInterrupted || r == ReasonCanceled
}

// Listener receives utterance events. Engines must call it asynchronously, never from
// inside Speak or Cancel.
type Listener interface {
	OnStart(id uint64)
	OnEnd(id uint64)
	OnError(id uint64, reason ErrorReason)
	OnVoicesChanged()
}

// Engine speaks one utterance at a time. It has no pause: callers cancel and speak again.
type Engine interface {
	Speak(u Utterance) error
	Cancel() error
	Speaking() bool
	Voices() ([]Voice, error)
	SetListener(l Listener)
	Close() error
}

type nopListener struct{}

func (nopListener) OnStart(uint64)              {}
func (nopListener) OnEnd(uint64)                {}
func (nopListener) OnError(uint64, ErrorReason) {}
func (nopListener) OnVoicesChanged()            {}
