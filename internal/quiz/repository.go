package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrQuizNotFound is returned when a quiz is requested by a name that does
// not exist in the loaded file.
var ErrQuizNotFound = errors.New("quiz not found")

type quizFile struct {
	Quizzes []Quiz `json:"quizzes"`
}

// Repository holds the quizzes loaded from a static quiz file.
type Repository struct {
	quizzes []Quiz
}

// LoadQuizzes reads and validates a quiz file. The file must contain at
// least one quiz and every question must be well formed.
func LoadQuizzes(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quiz file: %w", err)
	}

	var file quizFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse quiz file: %w", err)
	}

	if len(file.Quizzes) == 0 {
		return nil, fmt.Errorf("quiz file %s contains no quizzes", path)
	}

	for _, qz := range file.Quizzes {
		if err := validateQuiz(qz); err != nil {
			return nil, fmt.Errorf("quiz %q: %w", qz.Name, err)
		}
	}

	return &Repository{quizzes: file.Quizzes}, nil
}

func validateQuiz(qz Quiz) error {
	if qz.Name == "" {
		return errors.New("missing name")
	}
	if len(qz.Questions) == 0 {
		return errors.New("no questions")
	}
	for i, q := range qz.Questions {
		if q.Prompt == "" {
			return fmt.Errorf("question %d: empty prompt", i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: needs at least 2 options, got %d", i, len(q.Options))
		}
		if q.Correct < 1 || q.Correct > len(q.Options) {
			return fmt.Errorf("question %d: correct index %d out of range 1..%d", i, q.Correct, len(q.Options))
		}
		if q.Points <= 0 {
			return fmt.Errorf("question %d: points must be positive, got %d", i, q.Points)
		}
	}
	return nil
}

// Default returns the first quiz in the file. Administrative session
// creation without an explicit quiz name uses this.
func (r *Repository) Default() Quiz {
	return r.quizzes[0]
}

// ByName returns the quiz with the given name.
func (r *Repository) ByName(name string) (Quiz, error) {
	for _, qz := range r.quizzes {
		if qz.Name == name {
			return qz, nil
		}
	}
	return Quiz{}, fmt.Errorf("%w: %s", ErrQuizNotFound, name)
}

// Names lists the loaded quiz names in file order.
func (r *Repository) Names() []string {
	names := make([]string, len(r.quizzes))
	for i, qz := range r.quizzes {
		names[i] = qz.Name
	}
	return names
}
