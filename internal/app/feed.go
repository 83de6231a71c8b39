package app

import (
	"context"

	"relay-quiz-service/internal/domain"
)

// QuestionRepository loads the question bank for a topic (from cache/backing store).
type QuestionRepository interface {
	GetQuestions(ctx context.Context, topic string) ([]domain.Question, error)
}

// QuestionFeed wraps the question source behind a one-shot draw per game: up
// to size questions, fixed once drawn.
type QuestionFeed struct {
	repo QuestionRepository
	size int
}

func NewQuestionFeed(repo QuestionRepository, size int) *QuestionFeed {
	if size <= 0 {
		size = 10
	}
	return &QuestionFeed{repo: repo, size: size}
}

// Draw fetches min(size, available) questions for the topic. An empty bank is
// ErrNoQuestionsAvailable; the caller leaves the room in waiting.
func (f *QuestionFeed) Draw(ctx context.Context, topic string) ([]domain.Question, error) {
	questions, err := f.repo.GetQuestions(ctx, topic)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}
	if len(questions) > f.size {
		questions = questions[:f.size]
	}
	drawn := make([]domain.Question, len(questions))
	copy(drawn, questions)
	return drawn, nil
}
