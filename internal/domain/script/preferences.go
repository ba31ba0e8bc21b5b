package script

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"scriptdeck/internal/store"
)

const PreferencesKey = "preferences"

// Preferences are the playback settings a user last chose.
type Preferences struct {
	Rate    float64 `json:"rate"`
	Pitch   float64 `json:"pitch"`
	VoiceID string  `json:"voiceId,omitempty"`
}

// LoadPreferences returns the stored preferences, with defaults filling anything
// missing or out of range.
func LoadPreferences(s store.Store, defaults Preferences) (Preferences, error) {
	raw, ok, err := s.Get(PreferencesKey)
	if err != nil {
		return defaults, fmt.Errorf("failed to read preferences: %w", err)
	}
	if !ok {
		return defaults, nil
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		logrus.WithError(err).Warn("Stored preferences are corrupt, using defaults")
		return defaults, nil
	}

	if prefs.Rate <= 0 {
		prefs.Rate = defaults.Rate
	}
	if prefs.Pitch <= 0 {
		prefs.Pitch = defaults.Pitch
	}
	if prefs.VoiceID == "" {
		prefs.VoiceID = defaults.VoiceID
	}
	return prefs, nil
}

func SavePreferences(s store.Store, prefs Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := s.Set(PreferencesKey, string(data)); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
