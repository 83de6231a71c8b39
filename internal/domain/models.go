package domain

import "time"

// RoomStatus is the lifecycle state of a room. Transitions only move forward:
// waiting -> in_progress -> finished.
type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
	StatusFinished   RoomStatus = "finished"
)

// Player identifies a participant. ID and DisplayName come from the identity
// collaborator and are trusted as-is.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Question models a single quiz question for a topic. Answer is the exact
// correct submission string and must never be serialized to clients.
type Question struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"correctAnswer"`
	Topic   string   `json:"topic"`
}

// QuestionSet is a topic's question bank as stored in the backing store.
type QuestionSet struct {
	Topic     string     `json:"topic"`
	Questions []Question `json:"questions"`
}

// QuestionView is the client-safe projection of a Question.
type QuestionView struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// View strips the correct answer from a question.
func (q Question) View() QuestionView {
	return QuestionView{Prompt: q.Prompt, Options: q.Options}
}

// GameState is the canonical room snapshot broadcast to every member after
// each transition. Clients reconstruct nothing; this is the whole truth.
type GameState struct {
	RoomID          string         `json:"roomId"`
	Topic           string         `json:"topic"`
	Status          RoomStatus     `json:"status"`
	Members         []Player       `json:"members"`
	CreatorID       string         `json:"creatorId"`
	CurrentPlayerID string         `json:"currentPlayerId,omitempty"`
	QuestionIndex   int            `json:"questionIndex"`
	QuestionCount   int            `json:"questionCount"`
	CurrentQuestion *QuestionView  `json:"currentQuestion,omitempty"`
	Scores          map[string]int `json:"scores"`
}

// ScoreboardEntry is one row of the final scoreboard.
type ScoreboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// GameResult captures a finished session for the historical result sink.
type GameResult struct {
	RoomID     string            `json:"roomId"`
	Topic      string            `json:"topic"`
	Scoreboard []ScoreboardEntry `json:"scoreboard"`
	FinishedAt time.Time         `json:"finishedAt"`
}
