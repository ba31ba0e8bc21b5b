package speech

import (
	"strings"
	"unicode/utf8"

	"scriptdeck/internal/script/clean"
)

// session is one playback of one text. The queue holds indexes into chunks so progress
// can be reported against the whole script.
type session struct {
	source  string
	text    string
	chunks  []string
	offsets []int
	queue   []int
	last    int
	active  bool
	paused  bool
}

func newSession(source, text string, limit int) *session {
	chunks := clean.Chunk(text, limit)

	s := &session{
		source:  source,
		text:    text,
		chunks:  chunks,
		offsets: runeOffsets(text, chunks),
		queue:   make([]int, len(chunks)),
		last:    -1,
	}
	for i := range chunks {
		s.queue[i] = i
	}
	return s
}

// runeOffsets finds where each chunk starts in text, searching forward from the end of
// the previous one.
func runeOffsets(text string, chunks []string) []int {
	offsets := make([]int, len(chunks))
	pos := 0

	for i, c := range chunks {
		at := strings.Index(text[pos:], c)
		if at < 0 {
			offsets[i] = utf8.RuneCountInString(text[:pos])
			continue
		}
		offsets[i] = utf8.RuneCountInString(text[:pos+at])
		pos += at + len(c)
	}
	return offsets
}

// pop removes and returns the queue head, or -1 when the queue is empty.
func (s *session) pop() int {
	if len(s.queue) == 0 {
		return -1
	}
	i := s.queue[0]
	s.queue = s.queue[1:]
	return i
}

func (s *session) pushFront(i int) {
	s.queue = append([]int{i}, s.queue...)
}

func (s *session) progress(i int) Progress {
	return Progress{
		Index:  i,
		Total:  len(s.chunks),
		Text:   s.chunks[i],
		Offset: s.offsets[i],
	}
}
