package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"learnhub-service/internal/domain"
)

// ReadQuizFile parses a YAML list of quizzes and validates each one.
func ReadQuizFile(path string) (map[string]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []domain.Quiz
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse quiz file: %w", err)
	}
	quizzes := make(map[string]domain.Quiz, len(list))
	for _, quiz := range list {
		if err := quiz.Validate(); err != nil {
			return nil, err
		}
		if _, dup := quizzes[quiz.ID]; dup {
			return nil, fmt.Errorf("quiz file: duplicate quiz id %s", quiz.ID)
		}
		quizzes[quiz.ID] = quiz
	}
	return quizzes, nil
}
