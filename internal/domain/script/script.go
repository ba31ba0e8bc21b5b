package script

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"scriptdeck/internal/store"
)

const (
	HistoryKey = "history"

	// DefaultHistoryMax is how many scripts are remembered.
	DefaultHistoryMax = 20
)

// Entry is one generated script.
type Entry struct {
	Topic     string    `json:"topic"`
	Script    string    `json:"script"`
	Persona   string    `json:"persona,omitempty"`
	Visuals   string    `json:"visuals,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// History holds the most recent entries, newest first.
type History struct {
	limit   int
	entries []Entry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryMax
	}
	return &History{limit: limit}
}

// Add puts e at the front and drops the oldest entry past the cap.
func (h *History) Add(e Entry) {
	h.entries = append([]Entry{e}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Get returns the entry at index i, 0 being the newest.
func (h *History) Get(i int) (Entry, bool) {
	if i < 0 || i >= len(h.entries) {
		return Entry{}, false
	}
	return h.entries[i], true
}

// Update replaces the entry at index i.
func (h *History) Update(i int, e Entry) bool {
	if i < 0 || i >= len(h.entries) {
		return false
	}
	h.entries[i] = e
	return true
}

func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) Clear() {
	h.entries = nil
}

// LoadHistory reads the history from s. A missing or unreadable value yields an empty
// history; the latter is logged.
func LoadHistory(s store.Store, limit int) (*History, error) {
	h := NewHistory(limit)

	raw, ok, err := s.Get(HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if !ok {
		return h, nil
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logrus.WithError(err).Warn("Stored history is corrupt, starting fresh")
		return h, nil
	}

	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	h.entries = entries
	return h, nil
}

func SaveHistory(s store.Store, h *History) error {
	entries := h.entries
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.Set(HistoryKey, string(data)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
