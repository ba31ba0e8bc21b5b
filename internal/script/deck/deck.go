// Package deck is the scriptdeck application: it ties script generation, history,
// export and read-aloud playback to the CLI commands.
package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"scriptdeck/internal/cli/scheme/colours"
	"scriptdeck/internal/config"
	"scriptdeck/internal/domain/generator"
	"scriptdeck/internal/domain/script"
	"scriptdeck/internal/script/speech"
	"scriptdeck/internal/script/tts"
	"scriptdeck/internal/store"
)

var errNoHistory = errors.New("no scripts in history yet, run 'scriptdeck generate <topic>' first")

// Options replaces the parts of a Deck that touch the outside world. Nil fields get the
// real thing.
type Options struct {
	Engine    tts.Engine
	Store     store.Store
	Generator generator.Generator
	In        io.Reader
	Out       io.Writer
	Clipboard func(text string) error
	Now       func() time.Time
}

// Deck main application structure
type Deck struct {
	cfg     config.Config
	store   store.Store
	history *script.History
	prefs   script.Preferences

	mu     sync.Mutex
	engine tts.Engine
	speech *speech.Controller
	gen    generator.Generator
	closed bool

	in        io.Reader
	out       io.Writer
	clipboard func(string) error
	now       func() time.Time

	linesOnce sync.Once
	lines     chan string
	stopped   chan struct{}

	log    *logrus.Entry
	ctx    context.Context
	Cancel context.CancelFunc
}

func New(cfg config.Config, opts Options) (*Deck, error) {
	st := opts.Store
	if st == nil {
		fs, err := store.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		st = fs
	}

	history, err := script.LoadHistory(st, cfg.HistoryMax)
	if err != nil {
		return nil, err
	}
	prefs, err := script.LoadPreferences(st, cfg.DefaultPreferences())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Deck{
		cfg:       cfg,
		store:     st,
		history:   history,
		prefs:     prefs,
		engine:    opts.Engine,
		gen:       opts.Generator,
		in:        opts.In,
		out:       opts.Out,
		clipboard: opts.Clipboard,
		now:       opts.Now,
		stopped:   make(chan struct{}, 1),
		log:       logrus.WithField("component", "deck"),
		ctx:       ctx,
		Cancel:    cancel,
	}

	if d.in == nil {
		d.in = os.Stdin
	}
	if d.out == nil {
		d.out = color.Output
	}
	d.out = &syncWriter{w: d.out}
	if d.clipboard == nil {
		d.clipboard = clipboard.WriteAll
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// player returns the speech controller, creating the engine on first use so commands
// that never speak work without audio.
func (d *Deck) player() (*speech.Controller, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, speech.ErrClosed
	}
	if d.speech != nil {
		return d.speech, nil
	}

	if d.engine == nil {
		engine, err := tts.NewEngine(d.cfg.TTS())
		if err != nil {
			return nil, fmt.Errorf("failed to create tts engine: %w", err)
		}
		d.engine = engine
	}

	d.speech = speech.New(d.engine, d.cfg.Speech(d.prefs), playbackView{d}, d.log)
	return d.speech, nil
}

func (d *Deck) voices() ([]tts.Voice, error) {
	if _, err := d.player(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	engine := d.engine
	d.mu.Unlock()

	voices, err := engine.Voices()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return speech.SortVoices(voices, d.cfg.Language), nil
}

func (d *Deck) generator() (generator.Generator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gen != nil {
		return d.gen, nil
	}

	gen, err := generator.NewGeminiClient(d.ctx, d.cfg.GeminiAPIKey, d.cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	d.gen = gen
	return gen, nil
}

// Stop silences any playback in progress.
func (d *Deck) Stop() {
	d.mu.Lock()
	ctrl := d.speech
	d.mu.Unlock()

	if ctrl != nil {
		if err := ctrl.Stop(); err != nil {
			d.log.WithError(err).Debug("Stop after close")
		}
	}
}

// Close stops playback and releases the engine and the generator.
func (d *Deck) Close() error {
	d.Cancel()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.speech != nil {
		errs = append(errs, d.speech.Close())
	}
	if d.engine != nil {
		errs = append(errs, d.engine.Close())
	}
	if d.gen != nil {
		errs = append(errs, d.gen.Close())
	}
	return errors.Join(errs...)
}

func (d *Deck) ShowWelcome() {
	fmt.Fprintln(d.out)
	colours.Title.Fprintln(d.out, "🎬 Welcome to ScriptDeck! 🎬")
	fmt.Fprintln(d.out)
	colours.Info.Fprintln(d.out, "📚 Available commands:")
	fmt.Fprintln(d.out, "  • scriptdeck generate <topic> - Write a narration script")
	fmt.Fprintln(d.out, "  • scriptdeck speak [file]     - Read a script aloud")
	fmt.Fprintln(d.out, "  • scriptdeck clean [file]     - Show what will be spoken")
	fmt.Fprintln(d.out, "  • scriptdeck history          - Browse generated scripts")
	fmt.Fprintln(d.out, "  • scriptdeck visuals [n]      - Image prompts for a script")
	fmt.Fprintln(d.out, "  • scriptdeck export [n]       - Save a script or a production zip")
	fmt.Fprintln(d.out, "  • scriptdeck copy [n]         - Copy a script to the clipboard")
	fmt.Fprintln(d.out, "  • scriptdeck voices           - List voices")
	fmt.Fprintln(d.out, "  • scriptdeck settings         - Configure voice settings")
	fmt.Fprintln(d.out)
	colours.Prompt.Fprintln(d.out, "✨ Ready to write something worth hearing? ✨")
}

// entryAt resolves an optional 1-based history number, defaulting to the newest entry.
func (d *Deck) entryAt(args []string) (int, script.Entry, error) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return 0, script.Entry{}, fmt.Errorf("invalid history number %q", args[0])
		}
		n = v
	}

	e, ok := d.history.Get(n - 1)
	if !ok {
		if d.history.Len() == 0 {
			return 0, script.Entry{}, errNoHistory
		}
		return 0, script.Entry{}, fmt.Errorf("no script #%d in history (%d saved)", n, d.history.Len())
	}
	return n - 1, e, nil
}

func (d *Deck) saveHistory() {
	if err := script.SaveHistory(d.store, d.history); err != nil {
		d.log.WithError(err).Warn("Could not save history")
		colours.Warning.Fprintf(d.out, "⚠️ History not saved: %v\n", err)
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
