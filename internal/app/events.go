package app

import "relay-quiz-service/internal/domain"

// Event is one outbound broadcast destined for every member of a room. The
// gateway forwards these verbatim; request-scoped errors never travel here.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	EventPlayerJoined  = "playerJoined"
	EventPlayerLeft    = "playerLeft"
	EventGameStarted   = "gameStarted"
	EventGameState     = "gameState"
	EventGameEnded     = "gameEnded"
	EventScoreUpdate   = "scoreUpdate"
	EventLoading       = "loading"
	EventCorrectAnswer = "correctAnswer"
	EventWrongAnswer   = "wrongAnswer"
	EventNoAnswer      = "noAnswer"
)

// PlayerEvent accompanies join/leave and outcome broadcasts.
type PlayerEvent struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

// ScoreUpdate carries the aggregate scores after a resolved turn.
type ScoreUpdate struct {
	Scores map[string]int `json:"scores"`
}

// GameEnded carries the final scoreboard, scores descending with ties broken
// by original turn order.
type GameEnded struct {
	Scoreboard []domain.ScoreboardEntry `json:"scoreboard"`
}

func outcomeEventType(o domain.Outcome) string {
	switch o {
	case domain.OutcomeCorrect:
		return EventCorrectAnswer
	case domain.OutcomeWrong:
		return EventWrongAnswer
	default:
		return EventNoAnswer
	}
}
