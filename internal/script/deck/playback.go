package deck

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"scriptdeck/internal/cli/scheme/colours"
	"scriptdeck/internal/script/speech"
)

// playbackView prints what the controller is reading and wakes the input loop when it
// is done.
type playbackView struct{ d *Deck }

func (v playbackView) StateChanged(state speech.State) {
	v.d.log.WithField("state", state).Debug("Playback state changed")
	if state != speech.Stopped {
		return
	}
	select {
	case v.d.stopped <- struct{}{}:
	default:
	}
}

func (v playbackView) ChunkStarted(p speech.Progress) {
	colours.Muted.Fprintf(v.d.out, "  [%d/%d] ", p.Index+1, p.Total)
	colours.Chunk.Fprintln(v.d.out, p.Text)
}

// speakText reads text aloud and reports anything that stops it from starting.
func (d *Deck) speakText(text string) {
	err := d.play(text)
	switch {
	case err == nil:
	case errors.Is(err, speech.ErrNothingToSpeak):
		colours.Warning.Fprintln(d.out, "🔇 Nothing left to read once directions and labels are removed")
	default:
		d.log.WithError(err).Error("Playback failed")
		colours.Error.Fprintf(d.out, "❌ Could not read script aloud: %v\n", err)
	}
}

// play starts reading text and blocks until it finishes or the user stops it.
func (d *Deck) play(text string) error {
	ctrl, err := d.player()
	if err != nil {
		return err
	}

	select {
	case <-d.stopped:
	default:
	}

	if err := ctrl.Speak(text); err != nil {
		return err
	}

	fmt.Fprintln(d.out)
	colours.Success.Fprintln(d.out, "🎵 Reading script aloud... 🎵")
	fmt.Fprintln(d.out, "💡 Press Ctrl+C to stop anytime")
	fmt.Fprintln(d.out)

	d.waitForUserInput(ctrl)
	return nil
}

// readLines feeds input lines to whichever playback loop is running. One reader serves
// the whole process so no line is lost between scripts.
func (d *Deck) readLines() <-chan string {
	d.linesOnce.Do(func() {
		d.lines = make(chan string)
		go func() {
			defer close(d.lines)
			scanner := bufio.NewScanner(d.in)
			for scanner.Scan() {
				select {
				case d.lines <- scanner.Text():
				case <-d.ctx.Done():
					return
				}
			}
		}()
	})
	return d.lines
}

func (d *Deck) waitForUserInput(ctrl *speech.Controller) {
	lines := d.readLines()
	d.showControls()

	for {
		select {
		case <-d.ctx.Done():
			ctrl.Stop()
			return

		case <-d.stopped:
			if ctrl.State() != speech.Stopped {
				continue
			}
			fmt.Fprintln(d.out)
			colours.Success.Fprintln(d.out, "✅ Finished reading! 🌟")
			return

		case input, ok := <-lines:
			if !ok {
				// No more input; keep reading until playback ends.
				lines = nil
				continue
			}

			switch strings.TrimSpace(strings.ToLower(input)) {
			case "p", "pause":
				if ctrl.State() == speech.Paused {
					d.resume(ctrl)
				} else {
					ctrl.Pause()
					colours.Warning.Fprintln(d.out, "⏸️  Paused")
				}
			case "r", "resume":
				d.resume(ctrl)
			case "s", "stop":
				ctrl.Stop()
				colours.Warning.Fprintln(d.out, "⏹️  Stopped")
				return
			case "":
				continue
			default:
				colours.Info.Fprintln(d.out, "ℹ️  Use 'p' to pause, 'r' to resume, 's' to stop")
			}
			d.showControls()
		}
	}
}

func (d *Deck) resume(ctrl *speech.Controller) {
	if err := ctrl.Resume(); err != nil {
		colours.Error.Fprintf(d.out, "❌ Could not resume: %v\n", err)
		return
	}
	colours.Success.Fprintln(d.out, "▶️  Resumed")
}

func (d *Deck) showControls() {
	colours.Prompt.Fprint(d.out, "\n⏯️  'p' pause, 'r' resume, 's' stop, Enter to keep listening: \n")
}
