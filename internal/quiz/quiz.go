package quiz

// Question is one multiple-choice question. Correct is the 1-based index
// into Options and is never sent to clients before a round is scored.
type Question struct {
	Prompt  string   `json:"question"`
	Points  int      `json:"points"`
	Correct int      `json:"correct"`
	Options []string `json:"options"`
}

// IsCorrect reports whether a 1-based option index matches the answer key.
func (q Question) IsCorrect(option int) bool {
	return option == q.Correct
}

// Quiz is a named, ordered sequence of questions.
type Quiz struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}
