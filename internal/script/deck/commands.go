package deck

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scriptdeck/internal/cli/scheme/colours"
	"scriptdeck/internal/domain/generator"
	"scriptdeck/internal/domain/script"
	"scriptdeck/internal/script/clean"
	"scriptdeck/internal/script/export"
)

const (
	minRate  = 0.5
	maxRate  = 2.0
	minPitch = 0.5
	maxPitch = 2.0
)

func (d *Deck) Generate(cmd *cobra.Command, args []string) {
	personaName, _ := cmd.Flags().GetString("persona")
	speak, _ := cmd.Flags().GetBool("speak")
	withVisuals, _ := cmd.Flags().GetBool("visuals")

	entry, err := d.generate(strings.Join(args, " "), generator.ParsePersona(personaName), withVisuals)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ Could not generate script: %v\n", err)
		return
	}

	d.showEntry(1, entry)
	if speak {
		d.speakText(entry.Script)
	}
}

func (d *Deck) generate(topic string, persona generator.Persona, withVisuals bool) (script.Entry, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return script.Entry{}, generator.ErrEmptyTopic
	}

	gen, err := d.generator()
	if err != nil {
		return script.Entry{}, err
	}

	colours.Info.Fprintf(d.out, "✍️  Writing a %s script about %q...\n", persona, topic)
	text, err := gen.Generate(d.ctx, topic, persona)
	if err != nil {
		return script.Entry{}, err
	}

	entry := script.Entry{
		Topic:     topic,
		Script:    text,
		Persona:   string(persona),
		Timestamp: d.now(),
	}

	if withVisuals {
		colours.Info.Fprintln(d.out, "🎨 Writing visual prompts...")
		visuals, err := gen.VisualPrompts(d.ctx, text)
		if err != nil {
			d.log.WithError(err).Warn("Visual prompts failed")
			colours.Warning.Fprintf(d.out, "⚠️ No visual prompts: %v\n", err)
		} else {
			entry.Visuals = visuals
		}
	}

	d.history.Add(entry)
	d.saveHistory()
	return entry, nil
}

func (d *Deck) Speak(cmd *cobra.Command, args []string) {
	text, err := d.readScript(args)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}
	d.speakText(text)
}

func (d *Deck) Clean(cmd *cobra.Command, args []string) {
	showChunks, _ := cmd.Flags().GetBool("chunks")

	text, err := d.readScript(args)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}

	cleaned := clean.Sanitize(text)
	if !clean.Speakable(cleaned) {
		colours.Warning.Fprintln(d.out, "🔇 Nothing left to read once directions and labels are removed")
		return
	}

	if !showChunks {
		fmt.Fprintln(d.out, cleaned)
		return
	}

	chunks := clean.Chunk(cleaned, d.cfg.ChunkLimit)
	for i, c := range chunks {
		colours.Muted.Fprintf(d.out, "[%d/%d] ", i+1, len(chunks))
		fmt.Fprintln(d.out, c)
	}
}

// readScript takes a file name, "-" for standard input, or nothing for the newest
// history entry.
func (d *Deck) readScript(args []string) (string, error) {
	if len(args) == 0 {
		e, ok := d.history.Get(0)
		if !ok {
			return "", errNoHistory
		}
		return e.Script, nil
	}

	if args[0] == "-" {
		data, err := io.ReadAll(d.in)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

func (d *Deck) ListHistory(cmd *cobra.Command, args []string) {
	fmt.Fprintln(d.out)
	colours.Title.Fprintln(d.out, "📜 Script History 📜")
	fmt.Fprintln(d.out)

	entries := d.history.Entries()
	if len(entries) == 0 {
		colours.Warning.Fprintln(d.out, "🔍 No scripts yet.")
		return
	}

	for i, e := range entries {
		fmt.Fprintf(d.out, "  %d. ", i+1)
		colours.Topic.Fprint(d.out, e.Topic)
		if e.Persona != "" && e.Persona != string(generator.PersonaDefault) {
			fmt.Fprintf(d.out, " (%s)", e.Persona)
		}
		colours.Muted.Fprintf(d.out, "  %s\n", humanize.Time(e.Timestamp))
		fmt.Fprintf(d.out, "     💡 %s\n", preview(e.Script, 70))
	}

	fmt.Fprintln(d.out)
	colours.Success.Fprintf(d.out, "✨ %d scripts saved ✨\n", len(entries))
}

func (d *Deck) ShowHistory(cmd *cobra.Command, args []string) {
	i, e, err := d.entryAt(args)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}
	d.showEntry(i+1, e)
}

func (d *Deck) PlayHistory(cmd *cobra.Command, args []string) {
	_, e, err := d.entryAt(args)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}
	colours.Title.Fprintf(d.out, "🎬 %s\n", e.Topic)
	d.speakText(e.Script)
}

func (d *Deck) ClearHistory(cmd *cobra.Command, args []string) {
	d.history.Clear()
	d.saveHistory()
	colours.Success.Fprintln(d.out, "🧹 History cleared")
}

func (d *Deck) Visuals(cmd *cobra.Command, args []string) {
	refresh, _ := cmd.Flags().GetBool("refresh")

	i, e, err := d.entryAt(args)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}

	visuals, err := d.visuals(i, e, refresh)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ Could not write visual prompts: %v\n", err)
		return
	}

	fmt.Fprintln(d.out)
	colours.Title.Fprintf(d.out, "🎨 Visual prompts for %q\n", e.Topic)
	fmt.Fprintln(d.out, visuals)
}

// visuals returns the stored prompts for entry i, generating and saving them when there
// are none or refresh is set.
func (d *Deck) visuals(i int, e script.Entry, refresh bool) (string, error) {
	if e.Visuals != "" && !refresh {
		return e.Visuals, nil
	}

	gen, err := d.generator()
	if err != nil {
		return "", err
	}

	colours.Info.Fprintln(d.out, "🎨 Writing visual prompts...")
	visuals, err := gen.VisualPrompts(d.ctx, e.Script)
	if err != nil {
		return "", err
	}

	e.Visuals = visuals
	d.history.Update(i, e)
	d.saveHistory()
	return visuals, nil
}

func (d *Deck) Export(cmd *cobra.Command, args []string) {
	asZip, _ := cmd.Flags().GetBool("zip")
	dir, _ := cmd.Flags().GetString("out")

	_, e, err := d.entryAt(args)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}

	path, err := d.export(e, asZip, dir)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ Could not export script: %v\n", err)
		return
	}
	colours.Success.Fprintf(d.out, "💾 Saved %s\n", path)
}

func (d *Deck) export(e script.Entry, asZip bool, dir string) (path string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	now := d.now()
	name := export.TextFileName(now)
	if asZip {
		name = export.ZipFileName(now)
	}
	path = filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if !asZip {
		return path, export.WriteText(f, e.Script)
	}

	return path, export.WriteZip(f, export.Project{
		Topic:   e.Topic,
		Script:  e.Script,
		Visuals: e.Visuals,
		Rate:    d.prefs.Rate,
		Pitch:   d.prefs.Pitch,
		Created: now,
	})
}

func (d *Deck) Copy(cmd *cobra.Command, args []string) {
	_, e, err := d.entryAt(args)
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}

	if err := d.clipboard(e.Script); err != nil {
		d.log.WithError(err).Debug("Clipboard write failed")
		colours.Error.Fprintf(d.out, "❌ Could not copy to clipboard: %v\n", err)
		return
	}
	colours.Success.Fprintln(d.out, "📋 Script copied to clipboard")
}

func (d *Deck) ListVoices(cmd *cobra.Command, args []string) {
	voices, err := d.voices()
	if err != nil {
		colours.Error.Fprintf(d.out, "❌ %v\n", err)
		return
	}

	fmt.Fprintln(d.out)
	colours.Title.Fprintln(d.out, "🎤 Voices 🎤")
	fmt.Fprintln(d.out)

	if len(voices) == 0 {
		colours.Warning.Fprintf(d.out, "🔍 The %s engine has not reported any voices yet.\n", d.cfg.TTSType)
		return
	}

	for _, v := range voices {
		marker := "  "
		if v.ID == d.prefs.VoiceID {
			marker = "➤ "
		}
		fmt.Fprint(d.out, marker)
		colours.Topic.Fprint(d.out, v.Name)
		colours.Muted.Fprintf(d.out, "  %s  id: %s\n", v.Language, v.ID)
	}
}

func (d *Deck) ConfigureSettings(cmd *cobra.Command, args []string) {
	flags := cmd.Flags()
	prefs := d.prefs
	changed := false

	if flags.Changed("rate") {
		prefs.Rate, _ = flags.GetFloat64("rate")
		changed = true
	}
	if flags.Changed("pitch") {
		prefs.Pitch, _ = flags.GetFloat64("pitch")
		changed = true
	}
	if flags.Changed("voice") {
		prefs.VoiceID, _ = flags.GetString("voice")
		changed = true
	}

	if changed {
		if err := d.updatePreferences(prefs); err != nil {
			colours.Error.Fprintf(d.out, "❌ %v\n", err)
			return
		}
		colours.Success.Fprintln(d.out, "✅ Settings saved")
	}

	d.showSettings()
}

// updatePreferences checks, applies and persists new playback settings.
func (d *Deck) updatePreferences(prefs script.Preferences) error {
	if prefs.Rate < minRate || prefs.Rate > maxRate {
		return fmt.Errorf("rate must be between %.1f and %.1f", minRate, maxRate)
	}
	if prefs.Pitch < minPitch || prefs.Pitch > maxPitch {
		return fmt.Errorf("pitch must be between %.1f and %.1f", minPitch, maxPitch)
	}
	prefs.VoiceID = strings.TrimSpace(prefs.VoiceID)

	d.prefs = prefs

	d.mu.Lock()
	ctrl := d.speech
	d.mu.Unlock()
	if ctrl != nil {
		ctrl.SetRate(prefs.Rate)
		ctrl.SetPitch(prefs.Pitch)
		ctrl.SetVoice(prefs.VoiceID)
	}

	return script.SavePreferences(d.store, prefs)
}

func (d *Deck) showSettings() {
	fmt.Fprintln(d.out)
	colours.Title.Fprintln(d.out, "⚙️ Voice Settings ⚙️")
	fmt.Fprintln(d.out)

	voice := d.prefs.VoiceID
	if voice == "" {
		voice = "engine default"
	}

	colours.Prompt.Fprintln(d.out, "🎤 Playback:")
	fmt.Fprintf(d.out, "  • Engine: %s\n", d.cfg.TTSType)
	fmt.Fprintf(d.out, "  • Language: %s\n", d.cfg.Language)
	fmt.Fprintf(d.out, "  • Voice: %s\n", voice)
	fmt.Fprintf(d.out, "  • Speed: %.1fx\n", d.prefs.Rate)
	fmt.Fprintf(d.out, "  • Pitch: %.1f\n", d.prefs.Pitch)
	fmt.Fprintf(d.out, "  • Chunk size: %d characters\n", d.cfg.ChunkLimit)
}

func (d *Deck) showEntry(n int, e script.Entry) {
	fmt.Fprintln(d.out)
	colours.Title.Fprintf(d.out, "🎬 #%d ", n)
	colours.Topic.Fprintln(d.out, e.Topic)
	persona := e.Persona
	if persona == "" {
		persona = string(generator.PersonaDefault)
	}
	colours.Muted.Fprintf(d.out, "🎭 %s | 🕐 %s\n", persona, humanize.Time(e.Timestamp))
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, e.Script)

	if e.Visuals != "" {
		fmt.Fprintln(d.out)
		colours.Info.Fprintln(d.out, "🎨 Visual prompts:")
		fmt.Fprintln(d.out, e.Visuals)
	}
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// AddHistoryCommands adds the history parent command and its subcommands.
func (d *Deck) AddHistoryCommands(rootCmd *cobra.Command) {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "📜 Browse generated scripts",
		Long:  "List, show, replay or clear the scripts you generated",
		Run:   d.ListHistory,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List saved scripts",
		Args:  cobra.NoArgs,
		Run:   d.ListHistory,
	}

	showCmd := &cobra.Command{
		Use:   "show [n]",
		Short: "📖 Show a saved script",
		Args:  cobra.MaximumNArgs(1),
		Run:   d.ShowHistory,
	}

	playCmd := &cobra.Command{
		Use:   "play [n]",
		Short: "🔊 Read a saved script aloud",
		Args:  cobra.MaximumNArgs(1),
		Run:   d.PlayHistory,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "🧹 Forget every saved script",
		Args:  cobra.NoArgs,
		Run:   d.ClearHistory,
	}

	historyCmd.AddCommand(listCmd, showCmd, playCmd, clearCmd)
	rootCmd.AddCommand(historyCmd)
}
