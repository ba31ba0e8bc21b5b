package speech

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdeck/internal/script/tts"
)

const threeChunks = "Um. Dois. Três."

type recorder struct {
	mu     sync.Mutex
	states []State
	chunks []Progress
}

func (r *recorder) StateChanged(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) ChunkStarted(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, p)
}

func (r *recorder) snapshot() ([]State, []Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...), append([]Progress(nil), r.chunks...)
}

func newTestController(t *testing.T, obs Observer) (*Controller, *tts.MockTTSEngine) {
	t.Helper()

	engine := tts.NewMockTTSEngine()
	cfg := DefaultConfig()
	cfg.Retry = RetryPolicy{SettleDelay: time.Millisecond, RetryDelay: time.Millisecond}

	c := New(engine, cfg, obs, nil)
	t.Cleanup(func() {
		c.Close()
		engine.Close()
	})
	return c, engine
}

func waitUtterances(t *testing.T, engine *tts.MockTTSEngine, n int) []tts.Utterance {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(engine.Utterances()) == n
	}, time.Second, time.Millisecond, "waiting for %d utterances", n)
	return engine.Utterances()
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, time.Second, time.Millisecond, "waiting for state %s", want)
}

func texts(us []tts.Utterance) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Text
	}
	return out
}

func TestController_DrainsQueue(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	assert.Equal(t, Playing, c.State())

	waitUtterances(t, engine, 1)
	engine.Finish()
	waitUtterances(t, engine, 2)
	engine.Finish()
	us := waitUtterances(t, engine, 3)
	engine.Finish()

	waitState(t, c, Stopped)
	assert.Equal(t, []string{"Um.", "Dois.", "Três."}, texts(us))

	for _, u := range us {
		assert.Equal(t, "pt-BR", u.Language)
		assert.Equal(t, "mock-voice", u.Voice)
		assert.Equal(t, 1.1, u.Rate)
		assert.Equal(t, 1.0, u.Pitch)
		assert.Equal(t, 1.0, u.Volume)
	}
	assert.Equal(t, -1, c.Snapshot().Index)
}

func TestController_SanitizesBeforeSpeaking(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak("[INTRO] (0:00) NARRATOR: Teste final --- Fim."))
	us := waitUtterances(t, engine, 1)
	assert.Equal(t, "Teste final Fim.", us[0].Text)
}

func TestController_PauseResumeReplaysChunk(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)

	require.NoError(t, c.Pause())
	assert.Equal(t, Paused, c.State())
	assert.Equal(t, 1, engine.Cancels())
	assert.False(t, engine.Speaking())

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, "Um.", snap.Chunk)
	assert.Equal(t, 3, snap.Total)

	// the interrupted echo of the cancel must not move the queue
	assert.Never(t, func() bool { return len(engine.Utterances()) > 1 }, 30*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, c.Resume())
	assert.Equal(t, Playing, c.State())
	us := waitUtterances(t, engine, 2)
	assert.Equal(t, "Um.", us[1].Text)

	engine.Finish()
	us = waitUtterances(t, engine, 3)
	assert.Equal(t, "Dois.", us[2].Text)
}

func TestController_PauseOnlyWhilePlaying(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Pause())
	assert.Equal(t, Stopped, c.State())
	assert.Zero(t, engine.Cancels())
}

func TestController_ErrorSkipsToNextChunk(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)

	engine.Fail(tts.ReasonSynthesisFailed)
	us := waitUtterances(t, engine, 2)
	assert.Equal(t, "Dois.", us[1].Text)
	assert.Equal(t, Playing, c.State())
}

func TestController_ErrorOnLastChunkStops(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak("Só uma frase."))
	waitUtterances(t, engine, 1)

	engine.Fail(tts.ReasonAudioBusy)
	waitState(t, c, Stopped)
	assert.Len(t, engine.Utterances(), 1)
}

func TestController_IgnoresBenignErrors(t *testing.T) {
	for _, reason := range []tts.ErrorReason{tts.ReasonInterrupted, tts.ReasonCanceled} {
		t.Run(string(reason), func(t *testing.T) {
			c, engine := newTestController(t, nil)

			require.NoError(t, c.Speak(threeChunks))
			waitUtterances(t, engine, 1)

			engine.Fail(reason)
			assert.Never(t, func() bool {
				return len(engine.Utterances()) > 1 || c.State() != Playing
			}, 30*time.Millisecond, 5*time.Millisecond)
		})
	}
}

func TestController_IgnoresStaleEvents(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	first := waitUtterances(t, engine, 1)[0]

	engine.Finish()
	waitUtterances(t, engine, 2)

	engine.EmitEnd(first.ID)
	engine.EmitError(first.ID, tts.ReasonSynthesisFailed)

	assert.Never(t, func() bool {
		return len(engine.Utterances()) > 2 || c.State() != Playing
	}, 30*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1, c.Snapshot().Index)
}

func TestController_SpeakErrorIsTreatedAsFailure(t *testing.T) {
	c, engine := newTestController(t, nil)
	engine.SetSpeakError(errors.New("device gone"))

	require.NoError(t, c.Speak(threeChunks))

	waitState(t, c, Stopped)
	assert.Equal(t, []string{"Um.", "Dois.", "Três."}, texts(engine.Utterances()))
}

func TestController_SettlesBusyEngine(t *testing.T) {
	engine := tts.NewMockTTSEngine()
	defer engine.Close()

	cfg := DefaultConfig()
	cfg.Retry = RetryPolicy{SettleDelay: 50 * time.Millisecond, RetryDelay: time.Millisecond}
	c := New(engine, cfg, nil, nil)
	defer c.Close()

	engine.SetBusy(true)
	require.NoError(t, c.Speak(threeChunks))

	assert.Empty(t, engine.Utterances())
	assert.GreaterOrEqual(t, engine.Cancels(), 2)

	us := waitUtterances(t, engine, 1)
	assert.Equal(t, "Um.", us[0].Text)
}

func TestController_StopDuringSettleDropsDispatch(t *testing.T) {
	engine := tts.NewMockTTSEngine()
	defer engine.Close()

	cfg := DefaultConfig()
	cfg.Retry = RetryPolicy{SettleDelay: 20 * time.Millisecond, RetryDelay: time.Millisecond}
	c := New(engine, cfg, nil, nil)
	defer c.Close()

	engine.SetBusy(true)
	require.NoError(t, c.Speak(threeChunks))
	require.NoError(t, c.Stop())

	assert.Never(t, func() bool { return len(engine.Utterances()) > 0 }, 60*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, Stopped, c.State())
}

func TestController_NothingToSpeak(t *testing.T) {
	c, engine := newTestController(t, nil)

	assert.ErrorIs(t, c.Speak("[SOUND: Explosion] (0:30)"), ErrNothingToSpeak)
	assert.ErrorIs(t, c.Speak(""), ErrNothingToSpeak)
	assert.Equal(t, Stopped, c.State())
	assert.Empty(t, engine.Utterances())

	assert.ErrorIs(t, c.Resume(), ErrNothingToSpeak)
}

func TestController_ResumeFromStoppedReplaysLastText(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)
	require.NoError(t, c.Stop())
	assert.Equal(t, Stopped, c.State())

	require.NoError(t, c.Resume())
	us := waitUtterances(t, engine, 2)
	assert.Equal(t, "Um.", us[1].Text)
	assert.Equal(t, Playing, c.State())
}

func TestController_ResumeWithEmptyQueueRestarts(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)
	require.NoError(t, c.Pause())

	c.mu.Lock()
	c.sess.queue = nil
	c.mu.Unlock()

	require.NoError(t, c.Resume())
	us := waitUtterances(t, engine, 2)
	assert.Equal(t, "Um.", us[1].Text)

	snap := c.Snapshot()
	assert.Equal(t, Playing, snap.State)
	assert.Equal(t, 3, snap.Total)
}

func TestController_SkipsUnspeakableChunks(t *testing.T) {
	c, engine := newTestController(t, nil)

	c.mu.Lock()
	s := newSession("x", "x", 200)
	s.chunks = []string{"x", "Olá."}
	s.offsets = []int{0, 2}
	s.queue = []int{0, 1}
	s.active = true
	c.sess = s
	c.setState(Playing)
	c.dispatch()
	c.mu.Unlock()

	us := waitUtterances(t, engine, 1)
	assert.Equal(t, "Olá.", us[0].Text)
}

func TestController_SpeakReplacesCurrentPlayback(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)

	require.NoError(t, c.Speak("Outro texto."))
	us := waitUtterances(t, engine, 2)
	assert.Equal(t, "Outro texto.", us[1].Text)
	assert.Equal(t, 1, engine.Cancels())

	engine.Finish()
	waitState(t, c, Stopped)
	assert.Len(t, engine.Utterances(), 2)
}

func TestController_Observer(t *testing.T) {
	rec := &recorder{}
	c, engine := newTestController(t, rec)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)
	engine.Finish()
	waitUtterances(t, engine, 2)
	require.NoError(t, c.Pause())

	// the second chunk is reported from the engine's event goroutine
	require.Eventually(t, func() bool {
		_, chunks := rec.snapshot()
		return len(chunks) == 2
	}, time.Second, time.Millisecond)

	states, chunks := rec.snapshot()
	assert.Equal(t, []State{Playing, Paused}, states)
	assert.Equal(t, []Progress{
		{Index: 0, Total: 3, Text: "Um.", Offset: 0},
		{Index: 1, Total: 3, Text: "Dois.", Offset: 4},
	}, chunks)
}

func TestController_SettingsApplyToNextChunk(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)

	require.NoError(t, c.SetRate(1.5))
	require.NoError(t, c.SetPitch(0.8))
	engine.Finish()

	us := waitUtterances(t, engine, 2)
	assert.Equal(t, 1.1, us[0].Rate)
	assert.Equal(t, 1.5, us[1].Rate)
	assert.Equal(t, 0.8, us[1].Pitch)

	snap := c.Snapshot()
	assert.Equal(t, 1.5, snap.Rate)
}

func TestController_VoicesChangedRefreshesChoice(t *testing.T) {
	c, engine := newTestController(t, nil)
	require.NoError(t, c.SetVoice("luciana"))

	require.NoError(t, c.Speak(threeChunks))
	us := waitUtterances(t, engine, 1)
	assert.Equal(t, "mock-voice", us[0].Voice)

	engine.SetVoices([]tts.Voice{
		{ID: "samantha", Language: "en-US"},
		{ID: "luciana", Language: "pt-BR"},
	})
	engine.Finish()

	us = waitUtterances(t, engine, 2)
	assert.Equal(t, "luciana", us[1].Voice)
}

func TestController_Close(t *testing.T) {
	c, engine := newTestController(t, nil)

	require.NoError(t, c.Speak(threeChunks))
	waitUtterances(t, engine, 1)

	require.NoError(t, c.Close())
	assert.Equal(t, Stopped, c.State())
	assert.ErrorIs(t, c.Speak(threeChunks), ErrClosed)
	assert.ErrorIs(t, c.Resume(), ErrClosed)
	assert.NoError(t, c.Stop())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, "paused", Paused.String())
}
