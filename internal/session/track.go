package session

import "github.com/pequito193/PCD-Projeto/internal/quiz"

// Track is a session's ordered question sequence plus its cursor. The
// sequence is read-only; only the cursor is session-local mutable state.
// It is owned and advanced exclusively by the round loop.
type Track struct {
	questions []quiz.Question
	cursor    int
}

// NewTrack creates a track positioned at the first question.
func NewTrack(questions []quiz.Question) *Track {
	return &Track{questions: questions}
}

// Current returns the question under the cursor, or false when the track
// is exhausted.
func (t *Track) Current() (quiz.Question, bool) {
	if t.cursor >= len(t.questions) {
		return quiz.Question{}, false
	}
	return t.questions[t.cursor], true
}

// Advance moves the cursor one step and reports whether a question
// remains. The cursor never wraps.
func (t *Track) Advance() bool {
	if t.cursor < len(t.questions) {
		t.cursor++
	}
	return t.cursor < len(t.questions)
}

// Index is the 0-based position of the current question.
func (t *Track) Index() int { return t.cursor }

// Total is the number of questions on the track.
func (t *Track) Total() int { return len(t.questions) }
