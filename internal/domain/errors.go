package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no active room matches the given id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a room already holds its maximum members.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomIDConflict is returned when a requested room id is already taken.
	ErrRoomIDConflict = errors.New("room id already in use")
	// ErrInvalidRoomID is returned when a requested room id is not a 5-digit number.
	ErrInvalidRoomID = errors.New("room id must be a 5-digit number")
	// ErrInvalidTopic is returned when a room is created with a blank topic.
	ErrInvalidTopic = errors.New("topic must not be blank")
	// ErrNotCreator is returned when a non-creator invokes start/end.
	ErrNotCreator = errors.New("only the room creator may do that")
	// ErrNotYourTurn is returned when someone other than the turn-holder answers.
	ErrNotYourTurn = errors.New("it is not your turn")
	// ErrNotAMember is returned when the caller is not a member of the room.
	ErrNotAMember = errors.New("player is not a member of this room")
	// ErrGameFinished is returned for any game action on a finished session.
	ErrGameFinished = errors.New("game already finished")
	// ErrGameNotStarted is returned for in-game actions while still waiting.
	ErrGameNotStarted = errors.New("game has not started")
	// ErrGameInProgress is returned when starting an already running game.
	ErrGameInProgress = errors.New("game already in progress")
	// ErrInsufficientPlayers is returned when starting with fewer than the minimum.
	ErrInsufficientPlayers = errors.New("not enough players to start")
	// ErrNoQuestionsAvailable indicates the question source had nothing for the topic.
	ErrNoQuestionsAvailable = errors.New("no questions available for topic")
)
