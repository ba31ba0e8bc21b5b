package tts

import (
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// MockTTSEngine records utterances instead of speaking them. Tests drive its events by
// hand; the "mock" engine type simulates reading time so the CLI can run without audio.
type MockTTSEngine struct {
	mu         sync.Mutex
	listener   Listener
	utterances []Utterance
	current    uint64
	speaking   bool
	busy       bool
	cancels    int
	speakErr   error
	voices     []Voice
	simulate   bool
	timer      *time.Timer
	closed     bool

	queue   sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
}

// NewMockTTSEngine returns a mock that only moves when told to.
func NewMockTTSEngine() *MockTTSEngine {
	m := &MockTTSEngine{
		listener: nopListener{},
		voices:   []Voice{{ID: "mock-voice", Name: "Mock Voice", Language: "pt-BR"}},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go m.deliver()
	return m
}

func newSimulatedMockEngine() *MockTTSEngine {
	m := NewMockTTSEngine()
	m.simulate = true
	return m
}

// deliver runs listener callbacks one at a time, in the order they were raised.
func (m *MockTTSEngine) deliver() {
	for {
		select {
		case <-m.wake:
			for fn := m.next(); fn != nil; fn = m.next() {
				fn()
			}
		case <-m.done:
			return
		}
	}
}

func (m *MockTTSEngine) next() func() {
	m.queue.Lock()
	defer m.queue.Unlock()

	if len(m.pending) == 0 {
		return nil
	}
	fn := m.pending[0]
	m.pending = m.pending[1:]
	return fn
}

func (m *MockTTSEngine) emitLocked(fn func(l Listener)) {
	if m.closed {
		return
	}
	l := m.listener

	m.queue.Lock()
	m.pending = append(m.pending, func() { fn(l) })
	m.queue.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *MockTTSEngine) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l == nil {
		l = nopListener{}
	}
	m.listener = l
}

func (m *MockTTSEngine) Speak(u Utterance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.utterances = append(m.utterances, u)
	if m.speakErr != nil {
		return m.speakErr
	}

	m.current = u.ID
	m.speaking = true
	m.emitLocked(func(l Listener) { l.OnStart(u.ID) })

	if m.simulate {
		duration := simulatedDuration(u)
		color.Yellow("🔊 %s (simulated for %v)", u.Text, duration)
		m.timer = time.AfterFunc(duration, func() { m.finishID(u.ID) })
	}
	return nil
}

// simulatedDuration assumes 150 words a minute at rate 1.0.
func simulatedDuration(u Utterance) time.Duration {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	words := float64(len(strings.Fields(u.Text)))
	return time.Duration(words / (150.0 * rate) * float64(time.Minute))
}

func (m *MockTTSEngine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancels++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if !m.speaking {
		return nil
	}

	id := m.current
	m.speaking = false
	m.current = 0
	m.emitLocked(func(l Listener) { l.OnError(id, ReasonInterrupted) })
	return nil
}

func (m *MockTTSEngine) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking || m.busy
}

func (m *MockTTSEngine) Voices() ([]Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Voice, len(m.voices))
	copy(out, m.voices)
	return out, nil
}

func (m *MockTTSEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.closed = true
	m.speaking = false
	close(m.done)
	return nil
}

// Finish ends the utterance in flight normally.
func (m *MockTTSEngine) Finish() {
	m.mu.Lock()
	id := m.current
	m.mu.Unlock()
	m.finishID(id)
}

func (m *MockTTSEngine) finishID(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.speaking || m.current != id {
		return
	}
	m.speaking = false
	m.current = 0
	m.emitLocked(func(l Listener) { l.OnEnd(id) })
}

// Fail ends the utterance in flight with reason.
func (m *MockTTSEngine) Fail(reason ErrorReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.speaking {
		return
	}
	id := m.current
	m.speaking = false
	m.current = 0
	m.emitLocked(func(l Listener) { l.OnError(id, reason) })
}

// EmitEnd raises an end event for any id, current or not.
func (m *MockTTSEngine) EmitEnd(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitLocked(func(l Listener) { l.OnEnd(id) })
}

// EmitError raises an error event for any id, current or not.
func (m *MockTTSEngine) EmitError(id uint64, reason ErrorReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitLocked(func(l Listener) { l.OnError(id, reason) })
}

// SetBusy makes Speaking report true, even after Cancel, until SetBusy(false).
func (m *MockTTSEngine) SetBusy(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = busy
}

// SetSpeakError makes every following Speak fail with err.
func (m *MockTTSEngine) SetSpeakError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speakErr = err
}

// SetVoices replaces the voice list and raises OnVoicesChanged.
func (m *MockTTSEngine) SetVoices(voices []Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = voices
	m.emitLocked(func(l Listener) { l.OnVoicesChanged() })
}

// Utterances returns every utterance passed to Speak, in order.
func (m *MockTTSEngine) Utterances() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Utterance, len(m.utterances))
	copy(out, m.utterances)
	return out
}

// Current returns the utterance in flight, if any.
func (m *MockTTSEngine) Current() (Utterance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.speaking {
		return Utterance{}, false
	}
	for i := len(m.utterances) - 1; i >= 0; i-- {
		if m.utterances[i].ID == m.current {
			return m.utterances[i], true
		}
	}
	return Utterance{}, false
}

// Cancels counts calls to Cancel.
func (m *MockTTSEngine) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}
