package memory

import (
	"context"
	"sync"

	"relay-quiz-service/internal/domain"
)

// ResultSink keeps finished game results in memory. Stands in for the
// historical persistence collaborator when no database is configured.
type ResultSink struct {
	mu      sync.Mutex
	results []domain.GameResult
}

func NewResultSink() *ResultSink {
	return &ResultSink{}
}

func (s *ResultSink) SaveResult(_ context.Context, result domain.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns a copy of everything saved so far.
func (s *ResultSink) Results() []domain.GameResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.GameResult(nil), s.results...)
}
