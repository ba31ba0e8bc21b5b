// Package speech drives a tts.Engine through a queue of chunks with pause, resume and
// stop on top of an engine that can only speak and cancel.
package speech

import (
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"scriptdeck/internal/script/clean"
	"scriptdeck/internal/script/tts"
)

var (
	ErrNothingToSpeak = errors.New("nothing to speak")
	ErrClosed         = errors.New("speech controller closed")
)

// State is where the controller is in its playback cycle.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Config sets what every utterance sounds like.
type Config struct {
	Language   string
	VoiceID    string
	Rate       float64
	Pitch      float64
	ChunkLimit int
	Retry      RetryPolicy
}

// DefaultConfig returns Brazilian Portuguese at a slightly brisk rate.
func DefaultConfig() Config {
	return Config{
		Language:   "pt-BR",
		Rate:       1.1,
		Pitch:      1.0,
		ChunkLimit: clean.DefaultChunkLimit,
		Retry:      DefaultRetryPolicy(),
	}
}

// Progress describes the chunk just handed to the engine. Offset is in runes from the
// start of the cleaned text.
type Progress struct {
	Index  int
	Total  int
	Text   string
	Offset int
}

// Observer hears about playback. Calls are made outside the controller lock, so an
// observer may call back into the controller.
type Observer interface {
	StateChanged(state State)
	ChunkStarted(p Progress)
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State   State
	Index   int
	Total   int
	Chunk   string
	VoiceID string
	Rate    float64
	Pitch   float64
}

type (
	speakEvent    struct{ text string }
	pauseEvent    struct{}
	resumeEvent   struct{}
	stopEvent     struct{}
	closeEvent    struct{}
	endedEvent    struct{ id uint64 }
	failedEvent   struct {
		id     uint64
		reason tts.ErrorReason
	}
	voicesEvent   struct{}
	settingsEvent struct{ apply func(*Config) }
	timerEvent    struct {
		gen  uint64
		kind timerKind
	}
)

type timerKind int

const (
	settleTimer timerKind = iota
	retryTimer
)

// Controller owns the speech queue. Commands and engine events all pass through handle
// under one mutex, so the state machine never sees two things at once.
type Controller struct {
	mu       sync.Mutex
	engine   tts.Engine
	cfg      Config
	observer Observer
	log      *logrus.Entry

	state    State
	sess     *session
	lastText string
	current  uint64
	nextID   uint64
	gen      uint64
	timer    *time.Timer
	voices   []tts.Voice
	closed   bool

	notes []func()
}

// New wires a controller to engine and registers itself as the engine's listener.
// observer and log may be nil.
func New(engine tts.Engine, cfg Config, observer Observer, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Language == "" {
		cfg.Language = DefaultConfig().Language
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	if cfg.Pitch <= 0 {
		cfg.Pitch = DefaultConfig().Pitch
	}
	if cfg.ChunkLimit <= 0 {
		cfg.ChunkLimit = clean.DefaultChunkLimit
	}

	c := &Controller{
		engine:   engine,
		cfg:      cfg,
		observer: observer,
		log:      log.WithField("component", "speech"),
	}
	engine.SetListener(engineEvents{c})
	return c
}

// Speak stops whatever is playing and starts reading text from the top.
func (c *Controller) Speak(text string) error { return c.post(speakEvent{text}) }

// Pause stops the engine and keeps the interrupted chunk at the head of the queue.
func (c *Controller) Pause() error { return c.post(pauseEvent{}) }

// Resume continues a paused session, or replays the last text when stopped.
func (c *Controller) Resume() error { return c.post(resumeEvent{}) }

// Stop cancels speech and forgets the queue.
func (c *Controller) Stop() error { return c.post(stopEvent{}) }

// Close stops playback for good. It does not close the engine.
func (c *Controller) Close() error { return c.post(closeEvent{}) }

// SetRate changes the rate used from the next chunk on.
func (c *Controller) SetRate(rate float64) error {
	return c.post(settingsEvent{func(cfg *Config) { cfg.Rate = rate }})
}

// SetPitch changes the pitch used from the next chunk on.
func (c *Controller) SetPitch(pitch float64) error {
	return c.post(settingsEvent{func(cfg *Config) { cfg.Pitch = pitch }})
}

// SetVoice changes the preferred voice id used from the next chunk on.
func (c *Controller) SetVoice(id string) error {
	return c.post(settingsEvent{func(cfg *Config) { cfg.VoiceID = id }})
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:   c.state,
		Index:   -1,
		VoiceID: c.cfg.VoiceID,
		Rate:    c.cfg.Rate,
		Pitch:   c.cfg.Pitch,
	}
	if c.sess == nil {
		return snap
	}

	snap.Total = len(c.sess.chunks)
	switch {
	case c.sess.last >= 0:
		snap.Index = c.sess.last
	case len(c.sess.queue) > 0:
		snap.Index = c.sess.queue[0]
	}
	if snap.Index >= 0 {
		snap.Chunk = c.sess.chunks[snap.Index]
	}
	return snap
}

// post runs one event through handle and then tells the observer what changed.
func (c *Controller) post(ev any) error {
	c.mu.Lock()
	err := c.handle(ev)
	notes := c.notes
	c.notes = nil
	c.mu.Unlock()

	for _, note := range notes {
		note()
	}
	return err
}

func (c *Controller) handle(ev any) error {
	if c.closed {
		switch ev.(type) {
		case speakEvent, resumeEvent:
			return ErrClosed
		}
		return nil
	}

	switch ev := ev.(type) {
	case speakEvent:
		return c.speak(ev.text)

	case pauseEvent:
		c.pause()

	case resumeEvent:
		return c.resume()

	case stopEvent:
		c.stop()

	case closeEvent:
		c.stop()
		c.closed = true

	case endedEvent:
		c.ended(ev.id)

	case failedEvent:
		c.failed(ev.id, ev.reason)

	case voicesEvent:
		c.voices = nil

	case settingsEvent:
		ev.apply(&c.cfg)

	case timerEvent:
		c.fire(ev)
	}
	return nil
}

func (c *Controller) speak(text string) error {
	c.stop()

	cleaned := clean.Sanitize(text)
	if !clean.Speakable(cleaned) {
		return ErrNothingToSpeak
	}

	s := newSession(text, cleaned, c.cfg.ChunkLimit)
	if len(s.chunks) == 0 {
		return ErrNothingToSpeak
	}

	c.log.WithFields(logrus.Fields{
		"chunks": len(s.chunks),
		"runes":  utf8.RuneCountInString(cleaned),
	}).Debug("Starting playback")

	c.sess = s
	c.lastText = text
	s.active = true
	c.setState(Playing)
	c.dispatch()
	return nil
}

func (c *Controller) pause() {
	if c.state != Playing || c.sess == nil {
		return
	}

	c.invalidate()
	c.cancelEngine()

	if c.sess.last >= 0 {
		c.sess.pushFront(c.sess.last)
		c.sess.last = -1
	}
	c.current = 0
	c.sess.paused = true
	c.sess.active = false
	c.setState(Paused)
}

func (c *Controller) resume() error {
	switch c.state {
	case Playing:
		return nil

	case Paused:
		if c.sess == nil {
			return c.restart()
		}
		if len(c.sess.queue) == 0 {
			c.log.Debug("Queue empty on resume, restarting text")
			return c.speak(c.sess.source)
		}
		c.sess.paused = false
		c.sess.active = true
		c.setState(Playing)
		c.dispatch()
		return nil

	default:
		return c.restart()
	}
}

func (c *Controller) restart() error {
	if c.lastText == "" {
		return ErrNothingToSpeak
	}
	return c.speak(c.lastText)
}

func (c *Controller) stop() {
	c.invalidate()
	if c.sess != nil || c.engine.Speaking() {
		c.cancelEngine()
	}
	c.sess = nil
	c.current = 0
	c.setState(Stopped)
}

// dispatch hands the next speakable chunk to the engine, settling a busy engine first.
func (c *Controller) dispatch() {
	s := c.sess
	if s == nil || !s.active || s.paused {
		return
	}

	next := -1
	for i := s.pop(); i >= 0; i = s.pop() {
		if clean.Speakable(s.chunks[i]) {
			next = i
			break
		}
		c.log.WithField("chunk", i).Debug("Skipping unspeakable chunk")
	}
	if next < 0 {
		c.finish()
		return
	}
	s.last = next

	gen := c.invalidate()
	if c.engine.Speaking() {
		c.cancelEngine()
		c.schedule(c.cfg.Retry.SettleDelay, timerEvent{gen: gen, kind: settleTimer})
		return
	}
	c.utter(next)
}

func (c *Controller) utter(i int) {
	s := c.sess

	c.nextID++
	c.current = c.nextID

	u := tts.Utterance{
		ID:       c.current,
		Text:     s.chunks[i],
		Language: c.cfg.Language,
		Voice:    c.voice(),
		Rate:     c.cfg.Rate,
		Pitch:    c.cfg.Pitch,
		Volume:   1.0,
	}

	progress := s.progress(i)
	c.notify(func(o Observer) { o.ChunkStarted(progress) })

	if err := c.engine.Speak(u); err != nil {
		c.log.WithError(err).WithField("chunk", i).Warn("Engine refused chunk")
		c.current = 0
		c.skipFailed()
	}
}

func (c *Controller) ended(id uint64) {
	if id == 0 || id != c.current || c.sess == nil {
		return
	}
	c.current = 0
	c.sess.last = -1

	if len(c.sess.queue) == 0 {
		c.finish()
		return
	}
	c.dispatch()
}

func (c *Controller) failed(id uint64, reason tts.ErrorReason) {
	if id == 0 || id != c.current || c.sess == nil {
		c.log.WithFields(logrus.Fields{"id": id, "reason": reason}).Debug("Ignoring stale engine error")
		return
	}
	if reason.Benign() || (c.sess.paused && reason == tts.ReasonSynthesisFailed) {
		return
	}

	c.log.WithFields(logrus.Fields{"id": id, "reason": reason}).Warn("Chunk failed")
	c.current = 0
	c.skipFailed()
}

// skipFailed drops the failed chunk and moves on to the next one after the retry delay.
func (c *Controller) skipFailed() {
	s := c.sess
	s.last = -1

	if len(s.queue) == 0 {
		if !s.paused {
			c.finish()
		}
		return
	}

	gen := c.invalidate()
	c.cancelEngine()
	c.schedule(c.cfg.Retry.RetryDelay, timerEvent{gen: gen, kind: retryTimer})
}

func (c *Controller) fire(ev timerEvent) {
	if ev.gen != c.gen || c.sess == nil || !c.sess.active || c.sess.paused {
		return
	}
	c.timer = nil

	switch ev.kind {
	case settleTimer:
		if c.sess.last >= 0 {
			c.utter(c.sess.last)
		}
	case retryTimer:
		c.dispatch()
	}
}

func (c *Controller) finish() {
	c.log.Debug("Playback finished")
	c.invalidate()
	c.sess = nil
	c.current = 0
	c.setState(Stopped)
}

// invalidate bumps the generation so pending timers fire into nothing.
func (c *Controller) invalidate() uint64 {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return c.gen
}

func (c *Controller) schedule(d time.Duration, ev timerEvent) {
	c.timer = time.AfterFunc(d, func() { c.post(ev) })
}

func (c *Controller) cancelEngine() {
	if err := c.engine.Cancel(); err != nil {
		c.log.WithError(err).Warn("Engine cancel failed")
	}
}

func (c *Controller) voice() string {
	if len(c.voices) == 0 {
		voices, err := c.engine.Voices()
		if err != nil {
			c.log.WithError(err).Debug("Could not list voices")
		}
		c.voices = voices
	}
	return selectVoice(c.voices, c.cfg.VoiceID, c.cfg.Language)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.notify(func(o Observer) { o.StateChanged(s) })
}

func (c *Controller) notify(fn func(Observer)) {
	if c.observer == nil {
		return
	}
	c.notes = append(c.notes, func() { fn(c.observer) })
}

// engineEvents keeps the tts.Listener methods off the Controller's own API.
type engineEvents struct{ c *Controller }

func (e engineEvents) OnStart(id uint64) {}

func (e engineEvents) OnEnd(id uint64) { e.c.post(endedEvent{id}) }

func (e engineEvents) OnError(id uint64, reason tts.ErrorReason) {
	e.c.post(failedEvent{id: id, reason: reason})
}

func (e engineEvents) OnVoicesChanged() { e.c.post(voicesEvent{}) }
