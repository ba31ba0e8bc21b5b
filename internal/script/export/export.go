// Package export writes scripts out as plain text or as a zip production package.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	ScriptFile  = "01_script.txt"
	VisualsFile = "02_visual_prompts.txt"
	InfoFile    = "03_production_info.txt"

	generatedBy = "scriptdeck"
)

var ErrEmptyScript = errors.New("no script to export")

// Project is everything that goes into a production package.
type Project struct {
	Topic   string
	Script  string
	Visuals string
	Rate    float64
	Pitch   float64
	Created time.Time
}

// WriteText writes the script as it is.
func WriteText(w io.Writer, script string) error {
	if strings.TrimSpace(script) == "" {
		return ErrEmptyScript
	}
	if _, err := io.WriteString(w, script); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

// WriteZip writes the script, the visual prompts when there are any, and a production
// info sheet into one archive.
func WriteZip(w io.Writer, p Project) error {
	if strings.TrimSpace(p.Script) == "" {
		return ErrEmptyScript
	}
	if p.Created.IsZero() {
		p.Created = time.Now()
	}

	zw := zip.NewWriter(w)

	files := []struct {
		name string
		body string
	}{
		{ScriptFile, p.Script},
		{VisualsFile, p.Visuals},
		{InfoFile, productionInfo(p)},
	}

	for _, f := range files {
		if strings.TrimSpace(f.body) == "" {
			continue
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: p.Created,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", f.name, err)
		}
		if _, err := io.WriteString(fw, f.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zip: %w", err)
	}
	return nil
}

func productionInfo(p Project) string {
	var sb strings.Builder
	sb.WriteString("PROJECT METADATA\n")
	sb.WriteString("----------------\n")
	fmt.Fprintf(&sb, "TOPIC: %s\n", p.Topic)
	fmt.Fprintf(&sb, "DATE: %s\n", p.Created.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "VOICE_SPEED: %.1f\n", p.Rate)
	fmt.Fprintf(&sb, "VOICE_PITCH: %.1f\n", p.Pitch)
	fmt.Fprintf(&sb, "GENERATED_BY: %s\n", generatedBy)
	return sb.String()
}

// TextFileName names a plain-text export made at t.
func TextFileName(t time.Time) string {
	return fmt.Sprintf("scriptdeck_script_%d.txt", t.UnixMilli())
}

// ZipFileName names a production package made at t.
func ZipFileName(t time.Time) string {
	return fmt.Sprintf("scriptdeck_project_%s.zip", t.UTC().Format("2006-01-02T15-04-05"))
}
